package model

import "image"

// MaxImages bounds the number of images sampled per product.
const MaxImages = 3

// ImageAsset is a downloaded, decoded product image. Assets live only for the
// pipeline invocation that produced them.
type ImageAsset struct {
	SourceURL string
	FetchURL  string
	Image     image.Image
	Width     int
	Height    int

	// Data holds the transport encoding sent to the generation model.
	Data     []byte
	MIMEType string
}
