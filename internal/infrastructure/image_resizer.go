package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// ErrImageDecode wraps input that is not a supported raster image.
var ErrImageDecode = errors.New("cannot decode image")

// ImageResizer shrinks photos to the label bounds.
type ImageResizer struct {
	JPEGQuality int
}

func NewImageResizer() *ImageResizer {
	return &ImageResizer{JPEGQuality: 95}
}

// Resize scales data down to fit maxWidth x maxHeight with Lanczos
// resampling, keeping the aspect ratio and never upscaling. Images with an
// alpha channel or a palette come back as PNG, everything else as JPEG.
func (r *ImageResizer) Resize(data []byte, maxWidth, maxHeight int) ([]byte, string, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, "", fmt.Errorf("invalid bounds %dx%d", maxWidth, maxHeight)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	dst := imaging.Fit(src, maxWidth, maxHeight, imaging.Lanczos)

	format, encFormat := "jpeg", imaging.JPEG
	if hasAlphaOrPalette(src) {
		format, encFormat = "png", imaging.PNG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, encFormat, imaging.JPEGQuality(r.JPEGQuality)); err != nil {
		return nil, "", fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), format, nil
}

// hasAlphaOrPalette reports palette images and images with real
// transparency. Opaque RGB PNGs decode to *image.RGBA, so the colour model
// alone is not enough.
func hasAlphaOrPalette(img image.Image) bool {
	if _, ok := img.(*image.Paletted); ok {
		return true
	}
	if _, ok := img.ColorModel().(color.Palette); ok {
		return true
	}
	switch img.ColorModel() {
	case color.NRGBAModel, color.NRGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	case color.RGBAModel, color.RGBA64Model:
		if o, ok := img.(interface{ Opaque() bool }); ok {
			return !o.Opaque()
		}
		return true
	}
	return false
}
