package tasks

import (
	"fmt"

	"github.com/spinnelein/familybook/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when unknown
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase of a picker import.
type Phase int

const (
	CreateSession Phase = iota
	AwaitSelection
	ResolveItems
	ImportMedia
	Finished
)

func (p Phase) String() string {
	switch p {
	case CreateSession:
		return "create_session"
	case AwaitSelection:
		return "await_selection"
	case ResolveItems:
		return "resolve_items"
	case ImportMedia:
		return "import_media"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func creatingSessionUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: CreateSession, Step: 0, Total: 1, Message: "Creating Google Photos picker session..."}
}

func sessionCreatedUpdate(s *models.PickerSession) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateSession,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Open %s to choose photos", s.PickerURI),
		Data:    s,
	}
}

func pollUpdate(attempt int, s *models.PickerSession) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AwaitSelection,
		Step:    attempt,
		Message: fmt.Sprintf("Waiting for selection (poll %d, %s)...", attempt, s.State()),
		Data:    s,
	}
}

func resolvedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveItems,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d item(s) selected", count),
	}
}

func importItemUpdate(done, total int, item models.PickedMediaItem, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   ImportMedia,
			Step:    done,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", done, total, item.Filename(), err),
		}
	}
	return ProgressUpdate{
		Phase:   ImportMedia,
		Step:    done,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", done, total, item.Filename()),
	}
}

func finishedUpdate(r *models.ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    r.Count,
		Total:   r.Requested,
		Message: fmt.Sprintf("Imported %d of %d item(s)", r.Count, r.Requested),
		Data:    r,
	}
}
