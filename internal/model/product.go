package model

// NoTextFound is the description sentinel returned when neither the structured
// document nor the page markup yields any text. It signals that the
// description needs manual input.
const NoTextFound = "[NO TEXT FOUND. PLEASE INPUT MANUALLY]"

// DefaultProductTitle is used when no title could be read from the source.
const DefaultProductTitle = "Ladymaker Piece"

// ProductRecord is the normalized product returned by the fetcher.
type ProductRecord struct {
	URL         string           `json:"url"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Metadata    *ProductMetadata `json:"-"`
}

// NeedsManualInput reports whether the description is the "not found" sentinel.
func (p ProductRecord) NeedsManualInput() bool {
	return p.Description == NoTextFound
}

// ProductMetadata is the structured product document served at <product-url>.json.
type ProductMetadata struct {
	ID       int64          `json:"id,omitempty"`
	Title    string         `json:"title"`
	BodyHTML string         `json:"body_html"`
	Handle   string         `json:"handle,omitempty"`
	Vendor   string         `json:"vendor,omitempty"`
	Images   []ProductImage `json:"images"`
}

// ProductImage is a single entry of the structured document's image list.
type ProductImage struct {
	ID       int64  `json:"id,omitempty"`
	Src      string `json:"src"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	Position int    `json:"position,omitempty"`
}

// ImageURLs returns the non-empty image sources in document order.
func (m *ProductMetadata) ImageURLs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		if img.Src != "" {
			out = append(out, img.Src)
		}
	}
	return out
}
