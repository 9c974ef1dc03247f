package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/oauth2"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollBudget   = 10 * time.Minute
)

// PickerAPI is the subset of [services.PickerClient] the engine needs.
type PickerAPI interface {
	CreateSession(ctx context.Context) (*models.PickerSession, error)
	PollSession(ctx context.Context, sessionID string) (*models.PickerSession, error)
	ListPickedItems(ctx context.Context, sessionID string) ([]models.PickedMediaItem, error)
}

// MediaImporter is the subset of [services.Importer] the engine needs.
type MediaImporter interface {
	Import(ctx context.Context, items []models.PickedMediaItem, authHeader string, progress services.ImportProgress) *models.ImportResult
}

// TokenSource supplies the access token used for media downloads.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// WaitOptions bounds a poll loop. Zero values fall back to the session's polling config and
// then to [DefaultPollInterval] and [DefaultPollBudget].
type WaitOptions struct {
	Interval time.Duration
	Budget   time.Duration
}

// RunResult is the outcome of a full picker import.
type RunResult struct {
	Session *models.PickerSession
	Items   []models.PickedMediaItem
	Import  *models.ImportResult
}

// PickerEngine orchestrates picker sessions and imports.
type PickerEngine struct {
	picker   PickerAPI
	importer MediaImporter
	tokens   TokenSource
	now      func() time.Time
}

// NewPickerEngine creates a new PickerEngine with the provided collaborators.
func NewPickerEngine(picker PickerAPI, importer MediaImporter, tokens TokenSource) *PickerEngine {
	return &PickerEngine{picker: picker, importer: importer, tokens: tokens, now: time.Now}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// CreateSession starts a session and reports its picker URI.
func (e *PickerEngine) CreateSession(ctx context.Context, progress chan<- ProgressUpdate) (*models.PickerSession, error) {
	if e.picker == nil {
		return nil, fmt.Errorf("%w: picker client not initialized", shared.ErrServiceUnavailable)
	}

	sendProgress(progress, creatingSessionUpdate())
	session, err := e.picker.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	sendProgress(progress, sessionCreatedUpdate(session))
	return session, nil
}

// WaitForSelection polls session until the user has finished picking and returns the picked
// items. It fails with [shared.ErrTimeout] once the budget is spent and returns the context's
// error when ctx ends first. session is updated in place with each poll.
func (e *PickerEngine) WaitForSelection(ctx context.Context, session *models.PickerSession, opts WaitOptions, progress chan<- ProgressUpdate) ([]models.PickedMediaItem, error) {
	interval, budget := e.bounds(session, opts)
	deadline := e.now().Add(budget)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		polled, err := e.picker.PollSession(ctx, session.ID)
		if err != nil {
			return nil, err
		}
		session.Polled = true
		session.MediaItemsSet = polled.MediaItemsSet
		if polled.PollInterval > 0 {
			session.PollInterval = polled.PollInterval
			if polled.PollInterval > interval {
				interval = polled.PollInterval
				ticker.Reset(interval)
			}
		}
		sendProgress(progress, pollUpdate(attempt, session))

		if session.MediaItemsSet {
			items, err := e.picker.ListPickedItems(ctx, session.ID)
			if err == nil {
				sendProgress(progress, resolvedUpdate(len(items)))
				return items, nil
			}
			if !errors.Is(err, shared.ErrNotReadyYet) {
				return nil, err
			}
		}

		if !e.now().Add(interval).Before(deadline) {
			return nil, fmt.Errorf("%w: no selection in session %s after %d poll(s) within %s", shared.ErrTimeout, session.ID, attempt, budget)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// bounds picks the poll interval and total budget for session.
func (e *PickerEngine) bounds(session *models.PickerSession, opts WaitOptions) (time.Duration, time.Duration) {
	interval := session.PollInterval
	if opts.Interval > interval {
		interval = opts.Interval
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	budget := opts.Budget
	if remaining := session.Remaining(e.now()); remaining > 0 && (budget <= 0 || remaining < budget) {
		budget = remaining
	}
	if budget <= 0 {
		budget = DefaultPollBudget
	}
	return interval, budget
}

// Import downloads items with the current access token.
func (e *PickerEngine) Import(ctx context.Context, items []models.PickedMediaItem, progress chan<- ProgressUpdate) (*models.ImportResult, error) {
	if e.importer == nil {
		return nil, fmt.Errorf("%w: importer not initialized", shared.ErrServiceUnavailable)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items to import", shared.ErrInvalidInput)
	}

	tok, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	result := e.importer.Import(ctx, items, tok.Type()+" "+tok.AccessToken, func(done, total int, item models.PickedMediaItem, err error) {
		sendProgress(progress, importItemUpdate(done, total, item, err))
	})
	sendProgress(progress, finishedUpdate(result))
	return result, nil
}

// Run creates a session, waits for the user's selection and imports it.
//
// onSession is called once the picker URI is known, typically to open a browser.
func (e *PickerEngine) Run(ctx context.Context, opts WaitOptions, onSession func(*models.PickerSession), progress chan<- ProgressUpdate) (*RunResult, error) {
	session, err := e.CreateSession(ctx, progress)
	if err != nil {
		return nil, err
	}
	result := &RunResult{Session: session}

	if onSession != nil {
		onSession(session)
	}

	items, err := e.WaitForSelection(ctx, session, opts, progress)
	if err != nil {
		return result, err
	}
	result.Items = items

	if len(items) == 0 {
		result.Import = &models.ImportResult{}
		sendProgress(progress, finishedUpdate(result.Import))
		return result, nil
	}

	imported, err := e.Import(ctx, items, progress)
	if err != nil {
		return result, err
	}
	result.Import = imported
	return result, nil
}
