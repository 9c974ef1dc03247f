package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/spinnelein/familybook/internal/tasks"
)

type fakeEngine struct {
	session *models.PickerSession
	items   []models.PickedMediaItem
	result  *models.ImportResult
	err     error
}

func (f *fakeEngine) CreateSession(context.Context, chan<- tasks.ProgressUpdate) (*models.PickerSession, error) {
	return f.session, f.err
}

func (f *fakeEngine) WaitForSelection(_ context.Context, _ *models.PickerSession, _ tasks.WaitOptions, progress chan<- tasks.ProgressUpdate) ([]models.PickedMediaItem, error) {
	progress <- tasks.ProgressUpdate{Phase: tasks.AwaitSelection, Step: 1}
	return f.items, f.err
}

func (f *fakeEngine) Import(_ context.Context, items []models.PickedMediaItem, progress chan<- tasks.ProgressUpdate) (*models.ImportResult, error) {
	progress <- tasks.ProgressUpdate{Phase: tasks.ImportMedia, Step: 1, Total: len(items), Message: "[1/2] ✓ a.jpg"}
	return f.result, f.err
}

func newFakeEngine() *fakeEngine {
	result := &models.ImportResult{Requested: 2}
	result.Add(models.ImportedMedia{Filename: "img_1.jpg", OriginalName: "a.jpg", OriginalSize: 2048, ProcessedSize: 1024})
	result.Fail("b", "b.jpg", errors.New("download returned 404"))

	return &fakeEngine{
		session: &models.PickerSession{ID: "s1", PickerURI: "https://photos.google.com/picker/s1"},
		items: []models.PickedMediaItem{
			{ID: "a", MediaFile: models.MediaFile{Filename: "a.jpg", MimeType: "image/jpeg"}},
			{ID: "b", MediaFile: models.MediaFile{Filename: "b.jpg", MimeType: "image/jpeg"}},
		},
		result: result,
	}
}

// runBatch executes every command in cmd in order and returns the produced messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, runBatch(c)...)
	}
	return msgs
}

func keyPress(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel(t *testing.T) {
	t.Run("full import walkthrough", func(t *testing.T) {
		engine := newFakeEngine()
		var opened []string
		m := NewModel(context.Background(), engine, tasks.WaitOptions{}, func(uri string) error {
			opened = append(opened, uri)
			return nil
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		if !strings.Contains(m.View(), "Creating picker session") {
			t.Errorf("expected creating message, got %q", m.View())
		}

		_, cmd := m.Update(sessionCreatedMsg(engine.session, nil))
		if m.view != SessionView {
			t.Fatalf("expected SessionView, got %d", m.view)
		}
		if !strings.Contains(m.View(), engine.session.PickerURI) {
			t.Errorf("expected picker link in view")
		}

		for _, msg := range runBatch(cmd) {
			if msg != nil {
				m.Update(msg)
			}
		}
		if len(opened) != 1 || opened[0] != engine.session.PickerURI {
			t.Errorf("expected picker URI to be opened once, got %v", opened)
		}
		if m.view != SelectionView {
			t.Fatalf("expected SelectionView, got %d", m.view)
		}
		if !strings.Contains(m.View(), "2 item(s) picked") {
			t.Errorf("expected selection title in view, got %q", m.View())
		}

		_, cmd = m.Update(keyPress("enter"))
		if m.view != ImportView {
			t.Fatalf("expected ImportView, got %d", m.view)
		}

		var complete tea.Msg
		for _, msg := range runBatch(cmd) {
			if msg == nil {
				continue
			}
			if mm, ok := msg.(Msg); ok && mm.kind == MsgImportComplete {
				complete = msg
				continue
			}
			m.Update(msg)
		}
		if m.progress.Phase != tasks.ImportMedia || m.progress.Total != 2 {
			t.Errorf("expected import progress to be recorded, got %+v", m.progress)
		}
		if complete == nil {
			t.Fatalf("expected import complete message")
		}

		m.Update(complete)
		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %d", m.view)
		}
		view := m.View()
		if !strings.Contains(view, "Imported 1 of 2 item(s)") || !strings.Contains(view, "b.jpg: download returned 404") {
			t.Errorf("unexpected result view %q", view)
		}
		if m.Result() != engine.result {
			t.Errorf("expected result to be exposed")
		}
	})

	t.Run("session creation failure", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeEngine(), tasks.WaitOptions{}, nil)
		m.Update(sessionCreatedMsg(nil, shared.ErrAuthenticationRequired))

		if m.view != ResultView {
			t.Fatalf("expected ResultView, got %d", m.view)
		}
		if !errors.Is(m.Err(), shared.ErrAuthenticationRequired) {
			t.Errorf("expected ErrAuthenticationRequired, got %v", m.Err())
		}
		if !strings.Contains(m.View(), "Import failed") {
			t.Errorf("expected failure view, got %q", m.View())
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeEngine(), tasks.WaitOptions{}, nil)
		m.Update(selectionResolvedMsg(nil, nil))

		if m.view != ResultView || !strings.Contains(m.View(), "Nothing was picked") {
			t.Errorf("expected empty result view, got %q", m.View())
		}
	})

	t.Run("browser failure shows a notice", func(t *testing.T) {
		engine := newFakeEngine()
		m := NewModel(context.Background(), engine, tasks.WaitOptions{}, func(string) error {
			return errors.New("no display")
		})
		m.Update(sessionCreatedMsg(engine.session, nil))
		m.Update(browserOpenedMsg(errors.New("no display")))

		if !strings.Contains(m.View(), "Could not open a browser") {
			t.Errorf("expected browser notice, got %q", m.View())
		}
	})

	t.Run("restart from result", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeEngine(), tasks.WaitOptions{}, nil)
		m.Update(sessionCreatedMsg(nil, errors.New("boom")))

		_, cmd := m.Update(keyPress("r"))
		if m.view != SessionView || m.err != nil {
			t.Fatalf("expected fresh SessionView, got view %d err %v", m.view, m.err)
		}
		if cmd == nil {
			t.Fatalf("expected a command to create a new session")
		}
		if mm, ok := cmd().(Msg); !ok || mm.kind != MsgSessionCreated {
			t.Errorf("expected session created message, got %#v", mm)
		}
	})

	t.Run("quit cancels in-flight work", func(t *testing.T) {
		m := NewModel(context.Background(), newFakeEngine(), tasks.WaitOptions{}, nil)
		_, cmd := m.Update(keyPress("q"))

		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("expected quit command")
		}
		if m.ctx.Err() == nil {
			t.Errorf("expected context to be cancelled")
		}
	})
}
