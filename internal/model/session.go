package model

import "fmt"

// GenerationSession is the result of one successful generate request. It is
// replaced wholesale by the next generation.
type GenerationSession struct {
	GenerationID int             `json:"generation_id"`
	Product      ProductRecord   `json:"product"`
	ImageURLs    []string        `json:"image_urls"`
	Captions     []CaptionRecord `json:"captions"`
}

// EditKey names the editable copy of the caption at index for a generation.
func EditKey(index, generationID int) string {
	return fmt.Sprintf("editor_%d_%d", index, generationID)
}
