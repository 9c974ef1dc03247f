// Package models defines the domain entities of the Google Photos import pipeline.
//
// Provider-facing values are transient and never stored:
//   - [PickerSession] : a remote picking session with locally mirrored polling metadata
//   - [PickedMediaItem] : one selected item with its signed base URL
//
// Durable values:
//   - [Credential] : the single linked account's OAuth token, stored as a JSON file
//   - [ImportedMedia] : a file written by the importer, recorded in the SQLite ledger
//
// [ImportResult] and [MediaStats] are aggregates returned to callers.
package models
