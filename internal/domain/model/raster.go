package model

import "fmt"

// Raster is a single-channel grayscale bitmap of a sketch, cropped to
// the drawing's bounding box and square-padded by the sketch client.
// Pixels are row-major, one byte per pixel; JSON encodes them as base64.
type Raster struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// Validate checks the raster invariants before it crosses a boundary.
func (r *Raster) Validate() error {
	if r == nil {
		return ErrNilRaster
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadDimensions, r.Width, r.Height)
	}
	if len(r.Pixels) != r.Width*r.Height {
		return fmt.Errorf("%w: want %d pixels, got %d", ErrPixelCount, r.Width*r.Height, len(r.Pixels))
	}
	return nil
}

// Clone returns a deep copy so session state never aliases a buffer
// owned by a transport goroutine.
func (r *Raster) Clone() *Raster {
	if r == nil {
		return nil
	}
	pixels := make([]byte, len(r.Pixels))
	copy(pixels, r.Pixels)
	return &Raster{Width: r.Width, Height: r.Height, Pixels: pixels}
}
