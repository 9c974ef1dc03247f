package services

import (
	"regexp"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spinnelein/familybook/internal/models"
	tu "github.com/spinnelein/familybook/internal/testing"
)

func TestClassifyMedia(t *testing.T) {
	tc := []struct {
		mime string
		kind models.MediaKind
		ext  string
	}{
		{mime: "image/jpeg", kind: models.KindImage, ext: "jpg"},
		{mime: "image/png", kind: models.KindImage, ext: "png"},
		{mime: "image/gif", kind: models.KindImage, ext: "gif"},
		{mime: "image/webp", kind: models.KindImage, ext: "webp"},
		{mime: "image/heic", kind: models.KindImage, ext: "jpg"},
		{mime: "video/mp4", kind: models.KindVideo, ext: "mp4"},
		{mime: "video/quicktime", kind: models.KindVideo, ext: "mov"},
		{mime: "video/webm", kind: models.KindVideo, ext: "webm"},
		{mime: "video/3gpp", kind: models.KindVideo, ext: "mp4"},
		{mime: "IMAGE/PNG; charset=binary", kind: models.KindImage, ext: "png"},
		{mime: "", kind: models.KindImage, ext: "jpg"},
	}

	for _, tt := range tc {
		t.Run(tt.mime, func(t *testing.T) {
			kind, ext := ClassifyMedia(tt.mime)
			if kind != tt.kind || ext != tt.ext {
				t.Errorf("ClassifyMedia(%q) = %s/%s, want %s/%s", tt.mime, kind, ext, tt.kind, tt.ext)
			}
		})
	}
}

func TestVariantURL(t *testing.T) {
	t.Run("Image", func(t *testing.T) {
		if got := VariantURL("https://lh3.example/abc", "image/jpeg"); got != "https://lh3.example/abc=d" {
			t.Errorf("unexpected url %s", got)
		}
	})

	t.Run("Video", func(t *testing.T) {
		if got := VariantURL("https://lh3.example/abc", "video/mp4"); got != "https://lh3.example/abc=dv" {
			t.Errorf("unexpected url %s", got)
		}
	})

	t.Run("Unknown Defaults To Image", func(t *testing.T) {
		if got := VariantURL("https://lh3.example/abc", ""); got != "https://lh3.example/abc=d" {
			t.Errorf("unexpected url %s", got)
		}
	})
}

func TestNewMediaFilename(t *testing.T) {
	pattern := regexp.MustCompile(`^(img|vid)_[0-9a-f]{32}\.[a-z0-9]+$`)

	a := NewMediaFilename(models.KindImage, "jpg")
	b := NewMediaFilename(models.KindImage, "jpg")
	v := NewMediaFilename(models.KindVideo, ".mov")

	for _, name := range []string{a, b, v} {
		if !pattern.MatchString(name) {
			t.Errorf("unexpected filename %s", name)
		}
	}
	if a == b {
		t.Error("expected unique filenames")
	}
	if v[:4] != "vid_" || v[len(v)-4:] != ".mov" {
		t.Errorf("unexpected video filename %s", v)
	}
}

func TestResolveMime(t *testing.T) {
	png := tu.MakeImage(t, 4, 4, imaging.PNG, false)

	t.Run("Declared Type Wins", func(t *testing.T) {
		if got := ResolveMime("video/mp4", png); got != "video/mp4" {
			t.Errorf("expected declared type, got %s", got)
		}
	})

	t.Run("Sniffs Missing Type", func(t *testing.T) {
		if got := ResolveMime("", png); got != "image/png" {
			t.Errorf("expected image/png, got %s", got)
		}
	})

	t.Run("Sniffs Octet Stream", func(t *testing.T) {
		if got := ResolveMime("application/octet-stream", png); got != "image/png" {
			t.Errorf("expected image/png, got %s", got)
		}
	})

	t.Run("Falls Back To JPEG", func(t *testing.T) {
		if got := ResolveMime("", []byte("plain text")); got != "image/jpeg" {
			t.Errorf("expected image/jpeg, got %s", got)
		}
	})
}
