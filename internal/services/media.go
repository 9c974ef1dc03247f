package services

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

var videoExtensions = map[string]string{
	"video/mp4":       "mp4",
	"video/quicktime": "mov",
	"video/webm":      "webm",
}

// ClassifyMedia maps a MIME type to a media kind and stored file extension.
//
// Unknown image types are stored as jpg, unknown video types as mp4. Anything that is not
// video is treated as an image.
func ClassifyMedia(mimeType string) (models.MediaKind, string) {
	mt := normalizeMime(mimeType)

	if strings.HasPrefix(mt, "video/") {
		if ext, ok := videoExtensions[mt]; ok {
			return models.KindVideo, ext
		}
		return models.KindVideo, "mp4"
	}

	if ext, ok := imageExtensions[mt]; ok {
		return models.KindImage, ext
	}
	return models.KindImage, "jpg"
}

// VariantURL returns the download URL for a picked item's base URL: "=dv" for video,
// "=d" for everything else.
func VariantURL(baseURL, mimeType string) string {
	if strings.HasPrefix(normalizeMime(mimeType), "video/") {
		return baseURL + "=dv"
	}
	return baseURL + "=d"
}

// NewMediaFilename returns a unique stored name such as img_<32 hex>.jpg.
func NewMediaFilename(kind models.MediaKind, ext string) string {
	return kind.Prefix() + shared.GenerateHexID() + "." + strings.TrimPrefix(ext, ".")
}

// ResolveMime returns declared when it names a concrete type, otherwise the type sniffed from
// data, otherwise image/jpeg.
func ResolveMime(declared string, data []byte) string {
	mt := normalizeMime(declared)
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}

	if len(data) > 0 {
		sniffed := normalizeMime(mimetype.Detect(data).String())
		if strings.HasPrefix(sniffed, "image/") || strings.HasPrefix(sniffed, "video/") {
			return sniffed
		}
	}
	return "image/jpeg"
}

// normalizeMime lower-cases a MIME type and drops parameters.
func normalizeMime(mimeType string) string {
	mt, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
