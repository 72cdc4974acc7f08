package model

import "errors"

// Sentinel kinds for model validation errors.
var (
	ErrNilRaster     = errors.New("nil raster")
	ErrBadDimensions = errors.New("invalid raster dimensions")
	ErrPixelCount    = errors.New("pixel count does not match dimensions")
)
