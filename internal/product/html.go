package product

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// descriptionSelectors are tried in order; the first match wins.
var descriptionSelectors = []string{
	"div.product-description",
	"div.rte",
	"div#description",
}

// htmlToText renders an HTML fragment as one line per non-empty text node.
func htmlToText(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", eris.Wrap(err, "product: parse body html")
	}
	return strings.Join(textLines(doc.Selection), "\n"), nil
}

// parsePage extracts the title from the first h1 and the description from the
// first matching content container.
func parsePage(r io.Reader) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", eris.Wrap(err, "product: parse page")
	}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		title = strings.TrimSpace(h1.Text())
	}

	for _, sel := range descriptionSelectors {
		block := doc.Find(sel).First()
		if block.Length() == 0 {
			continue
		}
		text = strings.Join(textLines(block), "\n")
		break
	}
	return title, text, nil
}

func textLines(sel *goquery.Selection) []string {
	var lines []string
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			if t := strings.TrimSpace(s.Text()); t != "" {
				lines = append(lines, t)
			}
		case "#comment", "script", "style", "noscript", "template":
		default:
			lines = append(lines, textLines(s)...)
		}
	})
	return lines
}
