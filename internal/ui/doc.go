// Package ui implements the interactive picker import using bubbletea's Elm architecture.
//
// The TUI walks through one import:
//  1. [SessionView] : Create a picker session and wait while the user picks in the browser
//  2. [SelectionView] : Review the picked items before importing
//  3. [ImportView] : Monitor per-item import progress
//  4. [ResultView] : Display imported counts, sizes and failures
//
// The [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the Msg union type.
// Long-running engine calls run as commands while a second command drains the engine's progress channel.
package ui
