package oreasset

import "image"

// ImageCodec loads & saves the pixel image behind an atlas.
type ImageCodec interface {
	// Load the image at path
	Load(path string) (image.Image, error)

	// Save img to path, replacing any existing file
	Save(path string, img image.Image) error
}

// Grid is a tile grid the auto-tile resolver can sample.
type Grid interface {
	// At returns the atlas tile placed at pos, or Empty
	At(pos image.Point) image.Point

	// InBounds reports if pos lies inside the grid
	InBounds(pos image.Point) bool
}
