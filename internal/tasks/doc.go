// Package tasks drives a complete Google Photos import from the caller's side.
//
// The provider never notifies the server when the user finishes picking, so
// [PickerEngine.WaitForSelection] polls the session on the provider's recommended interval
// until items are set, bounded by the smaller of the caller's budget and the session's own
// lifetime. [PickerEngine.Run] composes session creation, waiting and import for the CLI.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel. Sends never block: when the
// channel is full the update is dropped.
package tasks
