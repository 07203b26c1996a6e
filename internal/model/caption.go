package model

// ErrorPersona is the persona of the pseudo-record produced when generation fails.
const ErrorPersona = "Error"

// CaptionRecord is one persona-targeted caption. Missing JSON keys decode to
// empty strings.
type CaptionRecord struct {
	Persona string `json:"persona"`
	Post    string `json:"post"`
}

// IsError reports whether the record is a generation failure placeholder.
func (c CaptionRecord) IsError() bool {
	return c.Persona == ErrorPersona
}

// ErrorCaption builds the single visible record that replaces a failed generation.
func ErrorCaption(msg string) []CaptionRecord {
	return []CaptionRecord{{Persona: ErrorPersona, Post: "AI ERROR: " + msg}}
}
