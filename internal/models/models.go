package models

import (
	"context"
	"time"
)

// Model is implemented by entities that can check their own invariants before persistence.
type Model interface {
	Validate() error
}

// Repository defines the data access operations shared by ledger repositories.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error                      // Create inserts a new model
	Get(ctx context.Context, id string) (T, error)                  // Get retrieves a model by its ID
	List(ctx context.Context, criteria map[string]any) ([]T, error) // List retrieves models matching criteria
}

// MediaKind is the coarse media category used in filenames and stats.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Prefix returns the stored filename prefix for the kind.
func (k MediaKind) Prefix() string {
	if k == KindVideo {
		return "vid_"
	}
	return "img_"
}

// ImportedMedia is one file written by the import pipeline.
type ImportedMedia struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	OriginalName  string    `json:"original_name"`
	RemoteID      string    `json:"google_photo_id"`
	Kind          MediaKind `json:"type"`
	Extension     string    `json:"extension"`
	MimeType      string    `json:"mime_type,omitempty"`
	URL           string    `json:"url"`
	OriginalSize  int64     `json:"original_size"`
	ProcessedSize int64     `json:"processed_size"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the fields the ledger requires.
func (m *ImportedMedia) Validate() error {
	switch {
	case m.Filename == "":
		return errMissingField("filename")
	case m.Kind != KindImage && m.Kind != KindVideo:
		return errInvalidField("type", string(m.Kind))
	case m.Extension == "":
		return errMissingField("extension")
	case m.URL == "":
		return errMissingField("url")
	}
	return nil
}

// ItemFailure describes one picked item that could not be imported.
type ItemFailure struct {
	RemoteID string `json:"google_photo_id"`
	Filename string `json:"filename"`
	Err      string `json:"error"`
}

// ImportResult aggregates an import batch. Count is Requested minus len(Failures).
type ImportResult struct {
	Media              []ImportedMedia `json:"media"`
	Requested          int             `json:"requested"`
	Count              int             `json:"count"`
	TotalOriginalSize  int64           `json:"totalOriginalSize"`
	TotalProcessedSize int64           `json:"totalProcessedSize"`
	Failures           []ItemFailure   `json:"failures,omitempty"`
}

// Add records a successful import.
func (r *ImportResult) Add(m ImportedMedia) {
	r.Media = append(r.Media, m)
	r.Count++
	r.TotalOriginalSize += m.OriginalSize
	r.TotalProcessedSize += m.ProcessedSize
}

// Fail records an item that was skipped.
func (r *ImportResult) Fail(remoteID, filename string, err error) {
	r.Failures = append(r.Failures, ItemFailure{RemoteID: remoteID, Filename: filename, Err: err.Error()})
}

// KindStats is a count and byte total for one media kind.
type KindStats struct {
	Count int   `json:"count"`
	Size  int64 `json:"size"`
}

// MediaStats summarizes stored media.
type MediaStats struct {
	TotalFiles int       `json:"total_files"`
	TotalSize  int64     `json:"total_size"`
	Images     KindStats `json:"images"`
	Videos     KindStats `json:"videos"`
}

// Observe adds one file to the totals.
func (s *MediaStats) Observe(kind MediaKind, size int64) {
	s.TotalFiles++
	s.TotalSize += size
	if kind == KindVideo {
		s.Videos.Count++
		s.Videos.Size += size
		return
	}
	s.Images.Count++
	s.Images.Size += size
}
