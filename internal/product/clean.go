package product

import (
	"strings"
	"unicode/utf8"
)

// MaxDescriptionLines caps the cleaned description.
const MaxDescriptionLines = 30

// minLineLength is exclusive: a kept line has more runes than this.
const minLineLength = 5

// boilerplateKeywords mark store-wide lines that say nothing about the piece.
var boilerplateKeywords = []string{"SHIPPING", "DELIVERY", "RETURNS", "SIZE GUIDE", "WHATSAPP"}

// CleanDescription drops boilerplate and short lines and caps the result at
// MaxDescriptionLines lines.
func CleanDescription(text string) string {
	kept := make([]string, 0, MaxDescriptionLines)
	for _, line := range strings.Split(text, "\n") {
		if len(kept) == MaxDescriptionLines {
			break
		}
		line = strings.TrimSpace(line)
		if isBoilerplate(line) {
			continue
		}
		if utf8.RuneCountInString(line) <= minLineLength {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isBoilerplate(line string) bool {
	upper := strings.ToUpper(line)
	for _, kw := range boilerplateKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}
