package campaign

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/theladymaker/atelier/internal/model"
)

// fenceRe matches a fenced code block, optionally language-tagged.
var fenceRe = regexp.MustCompile("(?s)```[\\w-]*[ \\t]*\\r?\\n?(.*?)```")

// ParseCaptions extracts the JSON array of {persona, post} objects from a
// model response. Validation is lenient: missing keys become empty strings and
// non-string values are rendered as text.
func ParseCaptions(text string) ([]model.CaptionRecord, error) {
	body := text
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		body = m[1]
	}
	body = strings.TrimSpace(body)

	var items []map[string]any
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		start, end := strings.Index(body, "["), strings.LastIndex(body, "]")
		if start < 0 || end <= start {
			return nil, eris.Wrap(err, "campaign: parse response")
		}
		if err := json.Unmarshal([]byte(body[start:end+1]), &items); err != nil {
			return nil, eris.Wrap(err, "campaign: parse response")
		}
	}
	if len(items) == 0 {
		return nil, eris.New("campaign: empty campaign")
	}

	records := make([]model.CaptionRecord, 0, len(items))
	for _, item := range items {
		records = append(records, model.CaptionRecord{
			Persona: field(item, "persona"),
			Post:    field(item, "post"),
		})
	}
	return records, nil
}

func field(item map[string]any, key string) string {
	switch v := item[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
