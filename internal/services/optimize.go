package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 2048
	DefaultJPEGQuality  = 85
)

// Optimizer downsizes and re-encodes imported images.
type Optimizer struct {
	MaxDimension int
	JPEGQuality  int
}

// NewOptimizer returns an optimizer, substituting defaults for non-positive values.
func NewOptimizer(maxDimension, jpegQuality int) Optimizer {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = DefaultJPEGQuality
	}
	return Optimizer{MaxDimension: maxDimension, JPEGQuality: jpegQuality}
}

// Optimize re-encodes jpg and png data within the configured bounds. WebP is checked for a
// valid header and kept as is. Any failure returns data unchanged together with the error,
// so callers can always store the returned bytes.
func (o Optimizer) Optimize(data []byte, ext string) ([]byte, error) {
	switch ext {
	case "jpg", "png":
	case "webp":
		if _, err := webp.DecodeConfig(bytes.NewReader(data)); err != nil {
			return data, fmt.Errorf("failed to read webp header: %w", err)
		}
		return data, nil
	default:
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, fmt.Errorf("failed to decode image: %w", err)
	}

	img = imaging.Fit(img, o.MaxDimension, o.MaxDimension, imaging.Lanczos)

	var buf bytes.Buffer
	switch ext {
	case "jpg":
		err = imaging.Encode(&buf, flatten(img), imaging.JPEG, imaging.JPEGQuality(o.JPEGQuality))
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	}
	if err != nil {
		return data, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// flatten composites images with transparency onto white, since JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
