package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	tu "github.com/spinnelein/familybook/internal/testing"
)

func newTestPicker(p *tu.FakeProvider, tokens TokenProvider) *PickerClient {
	cfg := shared.PickerConfig{APIBaseURL: p.APIBaseURL(), MaxItems: 25}
	return NewPickerClient(cfg, tokens, p.Client(), shared.NewLogger(io.Discard))
}

func TestPickerClient(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateSession", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.PollInterval = "5s"
		p.TimeoutIn = "1800s"
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok2"))

		session, err := client.CreateSession(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.ID != "session-1" {
			t.Errorf("expected session-1, got %s", session.ID)
		}
		if session.PickerURI == "" {
			t.Error("expected picker uri")
		}
		if session.PollInterval != 5*time.Second || session.TimeoutIn != 30*time.Minute {
			t.Errorf("unexpected polling config %v/%v", session.PollInterval, session.TimeoutIn)
		}
		if session.State() != models.StateNotStarted {
			t.Errorf("expected not_started, got %s", session.State())
		}
		if got := p.AuthHeaders(); len(got) != 1 || got[0] != "Bearer tok" {
			t.Errorf("unexpected auth headers %v", got)
		}
	})

	t.Run("Authentication Required Propagates Unchanged", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		tokens := tu.NewStaticTokens("", "")
		tokens.Err = shared.ErrAuthenticationRequired
		client := newTestPicker(p, tokens)

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrAuthenticationRequired) {
			t.Errorf("expected ErrAuthenticationRequired, got %v", err)
		}
		if errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Error("authentication errors must not be wrapped as create failures")
		}
		if p.Sessions() != 0 {
			t.Error("expected no provider call without a token")
		}
	})

	t.Run("Retries Once After 401", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ValidToken = "new"
		tokens := tu.NewStaticTokens("old", "new")
		client := newTestPicker(p, tokens)

		session, err := client.CreateSession(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if session.ID == "" {
			t.Error("expected a session")
		}
		if tokens.RefreshCount() != 1 {
			t.Errorf("expected one refresh, got %d", tokens.RefreshCount())
		}
		if got := p.AuthHeaders(); len(got) != 2 || got[1] != "Bearer new" {
			t.Errorf("expected retry with refreshed token, got %v", got)
		}
	})

	t.Run("Second 401 Fails", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ValidToken = "never"
		tokens := tu.NewStaticTokens("old", "new")
		client := newTestPicker(p, tokens)

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Errorf("expected ErrSessionCreateFailed, got %v", err)
		}
		if got := len(p.AuthHeaders()); got != 2 {
			t.Errorf("expected exactly two attempts, got %d", got)
		}
	})

	t.Run("Refresh Failure Surfaces", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ValidToken = "new"
		tokens := tu.NewStaticTokens("old", "new")
		tokens.RefreshErr = fmt.Errorf("%w: revoked", shared.ErrRefreshFailed)
		client := newTestPicker(p, tokens)

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("Provider Error", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.CreateStatus = http.StatusInternalServerError
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Errorf("expected ErrSessionCreateFailed, got %v", err)
		}

		var pe *ProviderError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ProviderError, got %T", err)
		}
		if pe.StatusCode != http.StatusInternalServerError || pe.Status != "INTERNAL" || pe.Op != OpCreateSession {
			t.Errorf("unexpected provider error %+v", pe)
		}
	})

	t.Run("Insufficient Scope", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.CreateStatus = http.StatusForbidden
		p.ErrorBody = `{"error":{"code":403,"message":"Request had insufficient authentication scopes.","status":"PERMISSION_DENIED"}}`
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrInsufficientScope) {
			t.Errorf("expected ErrInsufficientScope, got %v", err)
		}
		if !errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Errorf("expected ErrSessionCreateFailed, got %v", err)
		}
	})

	t.Run("Poll Failure", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.PollStatus = http.StatusBadGateway
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		_, err := client.PollSession(ctx, "session-1")
		if !errors.Is(err, shared.ErrPollFailed) {
			t.Errorf("expected ErrPollFailed, got %v", err)
		}
	})

	t.Run("Poll Requires Session ID", func(t *testing.T) {
		client := newTestPicker(tu.NewFakeProvider(t), tu.NewStaticTokens("tok", "tok"))
		if _, err := client.PollSession(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Items Set On Fourth Poll", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 3
		p.AddItem("item-1", "beach.jpg", "image/jpeg", tu.FakeMedia{Body: []byte("x")})
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		session, err := client.CreateSession(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		for i := 1; i <= 3; i++ {
			polled, err := client.PollSession(ctx, session.ID)
			if err != nil {
				t.Fatalf("poll %d: expected no error, got %v", i, err)
			}
			if polled.MediaItemsSet {
				t.Fatalf("poll %d: expected items not set", i)
			}
			if polled.State() != models.StatePickingInProgress {
				t.Errorf("poll %d: expected picking_in_progress, got %s", i, polled.State())
			}

			if _, err := client.ListPickedItems(ctx, session.ID); !errors.Is(err, shared.ErrNotReadyYet) {
				t.Errorf("poll %d: expected ErrNotReadyYet, got %v", i, err)
			}
		}

		polled, err := client.PollSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("poll 4: expected no error, got %v", err)
		}
		if polled.State() != models.StateItemsSet {
			t.Fatalf("poll 4: expected items_set, got %s", polled.State())
		}

		items, err := client.ListPickedItems(ctx, session.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 1 || items[0].ID != "item-1" || items[0].Filename() != "beach.jpg" {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("Not Ready Is Not A Resolve Failure", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ReadyAfter = 10
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		_, err := client.ListPickedItems(ctx, "session-1")
		if !errors.Is(err, shared.ErrNotReadyYet) {
			t.Errorf("expected ErrNotReadyYet, got %v", err)
		}
		if errors.Is(err, shared.ErrResolveFailed) {
			t.Error("not ready must not be reported as a resolve failure")
		}
	})

	t.Run("Follows Pagination", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.PageSize = 2
		for i := 0; i < 5; i++ {
			p.AddItem(fmt.Sprintf("item-%d", i), fmt.Sprintf("%d.jpg", i), "image/jpeg", tu.FakeMedia{Body: []byte("x")})
		}
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		if _, err := client.PollSession(ctx, "session-1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		items, err := client.ListPickedItems(ctx, "session-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(items) != 5 {
			t.Fatalf("expected 5 items across pages, got %d", len(items))
		}
		for i, item := range items {
			if item.ID != fmt.Sprintf("item-%d", i) {
				t.Errorf("expected item-%d at %d, got %s", i, i, item.ID)
			}
		}
	})

	t.Run("Resolve Failure", func(t *testing.T) {
		p := tu.NewFakeProvider(t)
		p.ListStatus = http.StatusInternalServerError
		client := newTestPicker(p, tu.NewStaticTokens("tok", "tok"))

		_, err := client.ListPickedItems(ctx, "session-1")
		if !errors.Is(err, shared.ErrResolveFailed) {
			t.Errorf("expected ErrResolveFailed, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		cfg := shared.PickerConfig{APIBaseURL: "http://picker.invalid/v1"}
		httpClient := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		client := NewPickerClient(cfg, tu.NewStaticTokens("tok", "tok"), httpClient, shared.NewLogger(io.Discard))

		_, err := client.CreateSession(ctx)
		if !errors.Is(err, shared.ErrSessionCreateFailed) {
			t.Errorf("expected ErrSessionCreateFailed, got %v", err)
		}
	})
}

func TestParseGoogleDuration(t *testing.T) {
	tc := []struct {
		in   string
		want time.Duration
	}{
		{in: "5s", want: 5 * time.Second},
		{in: "1.5s", want: 1500 * time.Millisecond},
		{in: "", want: 0},
		{in: "soon", want: 0},
	}
	for _, tt := range tc {
		if got := parseGoogleDuration(tt.in); got != tt.want {
			t.Errorf("parseGoogleDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
