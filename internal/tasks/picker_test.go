package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	tu "github.com/spinnelein/familybook/internal/testing"
)

func newTestEngine(p *tu.FakeProvider, store services.Storage) *PickerEngine {
	logger := shared.NewLogger(io.Discard)
	tokens := tu.NewStaticTokens("access", "refreshed")
	picker := services.NewPickerClient(shared.PickerConfig{APIBaseURL: p.APIBaseURL(), MaxItems: 10}, tokens, p.Client(), logger)
	importer := services.NewImporter(store, nil, shared.ImportConfig{}, p.Client(), logger)
	return NewPickerEngine(picker, importer, tokens)
}

func drain(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-progress:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected string
	}{
		{CreateSession, "create_session"},
		{AwaitSelection, "await_selection"},
		{ResolveItems, "resolve_items"},
		{ImportMedia, "import_media"},
		{Finished, "finished"},
		{Phase(99), ""},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.expected {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.expected)
		}
	}
}

func TestWaitForSelection(t *testing.T) {
	ctx := context.Background()

	t.Run("returns items on the poll that reports them set", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 3
		p.AddItem("a", "a.jpg", "image/jpeg", tu.FakeMedia{})
		p.AddItem("b", "b.jpg", "image/jpeg", tu.FakeMedia{})
		engine := newTestEngine(p, tu.NewMemoryStorage())

		session, err := engine.CreateSession(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		progress := make(chan ProgressUpdate, 32)
		items, err := engine.WaitForSelection(ctx, session, WaitOptions{Budget: 5 * time.Second}, progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(items))
		}
		if polls := p.Polls(session.ID); polls != 4 {
			t.Errorf("expected 4 polls, got %d", polls)
		}
		if session.State() != models.StateItemsSet {
			t.Errorf("expected session state %s, got %s", models.StateItemsSet, session.State())
		}

		var waits, resolved int
		for _, u := range drain(progress) {
			switch u.Phase {
			case AwaitSelection:
				waits++
			case ResolveItems:
				resolved++
			}
		}
		if waits != 4 || resolved != 1 {
			t.Errorf("expected 4 wait updates and 1 resolve update, got %d and %d", waits, resolved)
		}
	})

	t.Run("times out when the budget is spent", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 1 << 20
		engine := newTestEngine(p, tu.NewMemoryStorage())

		session, err := engine.CreateSession(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		_, err = engine.WaitForSelection(ctx, session, WaitOptions{Budget: 60 * time.Millisecond}, nil)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if polls := p.Polls(session.ID); polls < 1 {
			t.Errorf("expected at least one poll, got %d", polls)
		}
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 1 << 20
		p.PollInterval = "1s"
		engine := newTestEngine(p, tu.NewMemoryStorage())

		session, err := engine.CreateSession(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err = engine.WaitForSelection(cctx, session, WaitOptions{}, nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected context deadline error, got %v", err)
		}
	})

	t.Run("poll failures end the loop", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		engine := newTestEngine(p, tu.NewMemoryStorage())

		session, err := engine.CreateSession(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		p.PollStatus = 500

		_, err = engine.WaitForSelection(ctx, session, WaitOptions{}, nil)
		if !errors.Is(err, shared.ErrPollFailed) {
			t.Fatalf("expected ErrPollFailed, got %v", err)
		}
	})
}

// scriptedPicker returns one canned poll response per call and records when it was polled.
type scriptedPicker struct {
	polls    []*models.PickerSession
	polledAt []time.Time
	items    []models.PickedMediaItem
}

func (s *scriptedPicker) CreateSession(context.Context) (*models.PickerSession, error) {
	return &models.PickerSession{ID: "s1", PickerURI: "https://photos.example/pick/s1"}, nil
}

func (s *scriptedPicker) PollSession(_ context.Context, id string) (*models.PickerSession, error) {
	n := min(len(s.polledAt), len(s.polls)-1)
	s.polledAt = append(s.polledAt, time.Now())
	polled := *s.polls[n]
	polled.ID = id
	return &polled, nil
}

func (s *scriptedPicker) ListPickedItems(context.Context, string) ([]models.PickedMediaItem, error) {
	return s.items, nil
}

func TestWaitForSelectionFollowsProviderInterval(t *testing.T) {
	picker := &scriptedPicker{
		polls: []*models.PickerSession{
			{PollInterval: 150 * time.Millisecond},
			{PollInterval: 150 * time.Millisecond, MediaItemsSet: true},
		},
		items: []models.PickedMediaItem{{ID: "a"}},
	}
	engine := NewPickerEngine(picker, nil, tu.NewStaticTokens("access", "refreshed"))
	session := &models.PickerSession{ID: "s1", PollInterval: 10 * time.Millisecond}

	items, err := engine.WaitForSelection(context.Background(), session, WaitOptions{Interval: 10 * time.Millisecond, Budget: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if len(picker.polledAt) != 2 {
		t.Fatalf("expected 2 polls, got %d", len(picker.polledAt))
	}
	if gap := picker.polledAt[1].Sub(picker.polledAt[0]); gap < 140*time.Millisecond {
		t.Errorf("expected second poll to wait for the provider interval, waited %s", gap)
	}
	if session.PollInterval != 150*time.Millisecond {
		t.Errorf("expected session interval to be mirrored, got %s", session.PollInterval)
	}
}

func TestBounds(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	engine := NewPickerEngine(nil, nil, nil)
	engine.now = func() time.Time { return now }

	t.Run("defaults", func(t *testing.T) {
		interval, budget := engine.bounds(&models.PickerSession{ID: "s"}, WaitOptions{})
		if interval != DefaultPollInterval || budget != DefaultPollBudget {
			t.Errorf("expected defaults, got %s and %s", interval, budget)
		}
	})

	t.Run("session limits the budget", func(t *testing.T) {
		s := &models.PickerSession{ID: "s", PollInterval: 5 * time.Second, ExpireTime: now.Add(2 * time.Minute)}
		interval, budget := engine.bounds(s, WaitOptions{Interval: time.Second, Budget: time.Hour})
		if interval != 5*time.Second {
			t.Errorf("expected provider interval, got %s", interval)
		}
		if budget != 2*time.Minute {
			t.Errorf("expected session lifetime as budget, got %s", budget)
		}
	})

	t.Run("caller budget wins when shorter", func(t *testing.T) {
		s := &models.PickerSession{ID: "s", TimeoutIn: time.Hour}
		_, budget := engine.bounds(s, WaitOptions{Budget: time.Minute})
		if budget != time.Minute {
			t.Errorf("expected 1m, got %s", budget)
		}
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("imports the selection", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 1
		p.AddItem("img1", "beach.png", "image/png", tu.FakeMedia{Body: tu.MakeImage(t, 64, 48, imaging.PNG, false)})
		p.AddItem("vid1", "clip.mp4", "video/mp4", tu.FakeMedia{Body: []byte("not really a video")})
		store := tu.NewMemoryStorage()
		engine := newTestEngine(p, store)

		var opened string
		progress := make(chan ProgressUpdate, 64)
		result, err := engine.Run(ctx, WaitOptions{Budget: 5 * time.Second}, func(s *models.PickerSession) {
			opened = s.PickerURI
		}, progress)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if !strings.Contains(opened, result.Session.ID) {
			t.Errorf("expected picker URI for %s, got %q", result.Session.ID, opened)
		}
		if result.Import.Count != 2 || result.Import.Requested != 2 {
			t.Errorf("expected 2 of 2 imported, got %d of %d", result.Import.Count, result.Import.Requested)
		}
		if len(store.Names()) != 2 {
			t.Errorf("expected 2 stored files, got %d", len(store.Names()))
		}
		for _, auth := range p.AuthHeaders() {
			if auth != "Bearer access" {
				t.Errorf("expected bearer auth on every request, got %q", auth)
			}
		}

		updates := drain(progress)
		if len(updates) == 0 || updates[len(updates)-1].Phase != Finished {
			t.Errorf("expected final update to be %s", Finished)
		}
	})

	t.Run("partial failures are reported", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.AddItem("ok", "ok.png", "image/png", tu.FakeMedia{Body: tu.MakeImage(t, 16, 16, imaging.PNG, false)})
		p.AddItem("gone", "gone.jpg", "image/jpeg", tu.FakeMedia{Status: 404})
		engine := newTestEngine(p, tu.NewMemoryStorage())

		result, err := engine.Run(ctx, WaitOptions{Budget: 5 * time.Second}, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Import.Count != 1 || len(result.Import.Failures) != 1 {
			t.Errorf("expected 1 success and 1 failure, got %d and %d", result.Import.Count, len(result.Import.Failures))
		}
	})

	t.Run("session creation failure", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.CreateStatus = 500
		engine := newTestEngine(p, tu.NewMemoryStorage())

		_, err := engine.Run(ctx, WaitOptions{}, nil, nil)
		if !errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Fatalf("expected ErrSessionCreateFailed, got %v", err)
		}
	})

	t.Run("empty selection imports nothing", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		engine := newTestEngine(p, tu.NewMemoryStorage())

		result, err := engine.Run(ctx, WaitOptions{Budget: 5 * time.Second}, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Import.Count != 0 || result.Import.Requested != 0 {
			t.Errorf("expected empty result, got %+v", result.Import)
		}
	})
}

func TestImportRequiresToken(t *testing.T) {
	tokens := tu.NewStaticTokens("", "")
	tokens.Err = shared.ErrAuthenticationRequired
	engine := NewPickerEngine(nil, services.NewImporter(tu.NewMemoryStorage(), nil, shared.ImportConfig{}, nil, nil), tokens)

	_, err := engine.Import(context.Background(), []models.PickedMediaItem{{ID: "x"}}, nil)
	if !errors.Is(err, shared.ErrAuthenticationRequired) {
		t.Fatalf("expected ErrAuthenticationRequired, got %v", err)
	}
}
