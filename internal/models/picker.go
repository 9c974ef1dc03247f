package models

import (
	"strings"
	"time"
)

// SessionState is the observed lifecycle of a picker session.
type SessionState string

const (
	StateNotStarted        SessionState = "not_started"
	StatePickingInProgress SessionState = "picking_in_progress"
	StateItemsSet          SessionState = "items_set"
)

// Wire returns the upper-case form used in API responses, e.g. PICKING_IN_PROGRESS.
func (s SessionState) Wire() string {
	return strings.ToUpper(string(s))
}

// PickerSession is a remote picking session. Only the ID is authoritative; the polling
// metadata is mirrored locally to bound client-side polling.
type PickerSession struct {
	ID            string        `json:"id"`
	PickerURI     string        `json:"pickerUri"`
	MediaItemsSet bool          `json:"mediaItemsSet"`
	PollInterval  time.Duration `json:"pollInterval,omitempty"`
	TimeoutIn     time.Duration `json:"timeoutIn,omitempty"`
	ExpireTime    time.Time     `json:"expireTime,omitempty"`
	Polled        bool          `json:"-"`
}

// State derives the session state from what has been observed so far.
func (s *PickerSession) State() SessionState {
	switch {
	case s.MediaItemsSet:
		return StateItemsSet
	case s.Polled:
		return StatePickingInProgress
	default:
		return StateNotStarted
	}
}

// Remaining returns how long the provider will keep the session, or zero when unknown.
func (s *PickerSession) Remaining(now time.Time) time.Duration {
	if s.ExpireTime.IsZero() {
		return s.TimeoutIn
	}
	if d := s.ExpireTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

func (s *PickerSession) Validate() error {
	if s.ID == "" {
		return errMissingField("id")
	}
	return nil
}

// MediaFile is the downloadable part of a picked item.
type MediaFile struct {
	BaseURL  string `json:"baseUrl"`
	MimeType string `json:"mimeType,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// PickedMediaItem is one item selected in a picker session, in the provider's JSON shape.
type PickedMediaItem struct {
	ID         string    `json:"id"`
	CreateTime string    `json:"createTime,omitempty"`
	Type       string    `json:"type,omitempty"`
	MediaFile  MediaFile `json:"mediaFile"`
}

// BaseURL returns the signed base URL used for downloads.
func (p PickedMediaItem) BaseURL() string { return p.MediaFile.BaseURL }

// MimeType returns the provider-reported MIME type, which may be empty.
func (p PickedMediaItem) MimeType() string { return p.MediaFile.MimeType }

// Filename returns the original filename, or a generated name derived from the item ID.
func (p PickedMediaItem) Filename() string {
	if p.MediaFile.Filename != "" {
		return p.MediaFile.Filename
	}
	short := p.ID
	if len(short) > 8 {
		short = short[:8]
	}
	return "google_photo_" + short + ".jpg"
}
