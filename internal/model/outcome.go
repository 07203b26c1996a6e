package model

// PublishOutcome reports the result of publishing a single caption.
type PublishOutcome struct {
	Persona string `json:"persona"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BulkResult aggregates the outcomes of a bulk publish.
type BulkResult struct {
	Outcomes  []PublishOutcome `json:"outcomes"`
	Attempted int              `json:"attempted"`
	Succeeded int              `json:"succeeded"`
}
