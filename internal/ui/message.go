package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionCreated MsgKind = iota
	MsgSelectionResolved
	MsgProgressUpdate
	MsgImportComplete
	MsgBrowserOpened
)

type sessionCreated struct {
	session *models.PickerSession
	err     error
}

type selectionResolved struct {
	items []models.PickedMediaItem
	err   error
}

type progressUpdate struct {
	update tasks.ProgressUpdate
	ch     <-chan tasks.ProgressUpdate
}

type importComplete struct {
	result *models.ImportResult
	err    error
}

// sessionCreatedMsg is the constructor for [MsgSessionCreated]
func sessionCreatedMsg(session *models.PickerSession, err error) Msg {
	return Msg{kind: MsgSessionCreated, data: sessionCreated{session, err}}
}

// selectionResolvedMsg is the constructor for [MsgSelectionResolved]
func selectionResolvedMsg(items []models.PickedMediaItem, err error) Msg {
	return Msg{kind: MsgSelectionResolved, data: selectionResolved{items, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]. ch is the channel the update
// came from, so the listener can be re-armed on it.
func progressUpdateMsg(update tasks.ProgressUpdate, ch <-chan tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: progressUpdate{update, ch}}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(result *models.ImportResult, err error) Msg {
	return Msg{kind: MsgImportComplete, data: importComplete{result, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
