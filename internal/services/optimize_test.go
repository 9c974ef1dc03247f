package services

import (
	"bytes"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	tu "github.com/spinnelein/familybook/internal/testing"
)

func decodeBounds(t *testing.T, data []byte) (image.Image, string) {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode optimized image: %v", err)
	}
	return img, format
}

func TestOptimizer(t *testing.T) {
	opt := NewOptimizer(0, 0)

	t.Run("Defaults", func(t *testing.T) {
		if opt.MaxDimension != 2048 || opt.JPEGQuality != 85 {
			t.Errorf("unexpected defaults %+v", opt)
		}
	})

	t.Run("Downsizes Large JPEG", func(t *testing.T) {
		src := tu.MakeImage(t, 3000, 1500, imaging.JPEG, false)

		out, err := opt.Optimize(src, "jpg")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		img, format := decodeBounds(t, out)
		if format != "jpeg" {
			t.Errorf("expected jpeg, got %s", format)
		}
		if b := img.Bounds(); b.Dx() != 2048 || b.Dy() != 1024 {
			t.Errorf("expected 2048x1024, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("Reoptimizing Keeps Dimensions", func(t *testing.T) {
		tests := []struct {
			ext    string
			format imaging.Format
		}{
			{"jpg", imaging.JPEG},
			{"png", imaging.PNG},
		}

		for _, tt := range tests {
			t.Run(tt.ext, func(t *testing.T) {
				src := tu.MakeImage(t, 3001, 1777, tt.format, false)

				once, err := opt.Optimize(src, tt.ext)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				twice, err := opt.Optimize(once, tt.ext)
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				first, _, err := image.DecodeConfig(bytes.NewReader(once))
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				second, _, err := image.DecodeConfig(bytes.NewReader(twice))
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}

				if first.Width != second.Width || first.Height != second.Height {
					t.Errorf("expected %dx%d after second pass, got %dx%d", first.Width, first.Height, second.Width, second.Height)
				}
				if max(second.Width, second.Height) > 2048 {
					t.Errorf("expected at most 2048px, got %dx%d", second.Width, second.Height)
				}
			})
		}
	})

	t.Run("Keeps Small Image Dimensions", func(t *testing.T) {
		src := tu.MakeImage(t, 640, 480, imaging.PNG, false)

		out, err := opt.Optimize(src, "png")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		img, format := decodeBounds(t, out)
		if format != "png" {
			t.Errorf("expected png, got %s", format)
		}
		if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
			t.Errorf("expected 640x480, got %dx%d", b.Dx(), b.Dy())
		}
	})

	t.Run("Flattens Transparency For JPEG", func(t *testing.T) {
		src := tu.MakeImage(t, 10, 10, imaging.PNG, true)

		out, err := opt.Optimize(src, "jpg")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		img, format := decodeBounds(t, out)
		if format != "jpeg" {
			t.Fatalf("expected jpeg, got %s", format)
		}
		// half-transparent red over white is a light red
		r, g, _, _ := img.At(5, 5).RGBA()
		if r>>8 < 200 || g>>8 < 100 {
			t.Errorf("expected pixel blended with white, got r=%d g=%d", r>>8, g>>8)
		}
	})

	t.Run("Corrupt Data Keeps Original", func(t *testing.T) {
		src := []byte("definitely not an image")

		out, err := opt.Optimize(src, "jpg")
		if err == nil {
			t.Error("expected decode error")
		}
		if !bytes.Equal(out, src) {
			t.Error("expected original bytes on failure")
		}
	})

	t.Run("Invalid WebP Keeps Original", func(t *testing.T) {
		src := []byte("RIFF....WEBPjunk")
		out, err := opt.Optimize(src, "webp")
		if err == nil {
			t.Error("expected webp header error")
		}
		if !bytes.Equal(out, src) {
			t.Error("expected original bytes")
		}
	})

	t.Run("GIF Untouched", func(t *testing.T) {
		src := tu.MakeImage(t, 300, 300, imaging.GIF, false)
		out, err := opt.Optimize(src, "gif")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !bytes.Equal(out, src) {
			t.Error("expected gif bytes to be unchanged")
		}
	})
}
