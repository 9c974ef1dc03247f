package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/metrics"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultPickerBaseURL = "https://photospicker.googleapis.com/v1"
	mediaItemsPageSize   = 100
	maxErrorBody         = 64 << 10
)

// Operation names used in errors, logs and metrics.
const (
	OpCreateSession = "create_session"
	OpPollSession   = "poll_session"
	OpListItems     = "list_media_items"
)

// PickerClient talks to the Google Photos Picker API. Calls never wait for the user; polling
// cadence belongs to the caller.
type PickerClient struct {
	baseURL    string
	maxItems   int
	tokens     TokenProvider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewPickerClient creates a client from cfg. A nil httpClient uses a client with a 30s timeout.
func NewPickerClient(cfg shared.PickerConfig, tokens TokenProvider, httpClient *http.Client, logger *log.Logger) *PickerClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = DefaultPickerBaseURL
	}
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 50
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &PickerClient{
		baseURL:    base,
		maxItems:   maxItems,
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     shared.WithLogger(logger, "component", "picker"),
	}
}

type pickingConfig struct {
	MaxItemCount string `json:"maxItemCount"`
}

type createSessionRequest struct {
	PickingConfig pickingConfig `json:"pickingConfig"`
}

type sessionResponse struct {
	ID            string `json:"id"`
	PickerURI     string `json:"pickerUri"`
	MediaItemsSet bool   `json:"mediaItemsSet"`
	ExpireTime    string `json:"expireTime"`
	PollingConfig struct {
		PollInterval string `json:"pollInterval"`
		TimeoutIn    string `json:"timeoutIn"`
	} `json:"pollingConfig"`
}

func (r sessionResponse) session(polled bool) *models.PickerSession {
	s := &models.PickerSession{
		ID:            r.ID,
		PickerURI:     r.PickerURI,
		MediaItemsSet: r.MediaItemsSet,
		PollInterval:  parseGoogleDuration(r.PollingConfig.PollInterval),
		TimeoutIn:     parseGoogleDuration(r.PollingConfig.TimeoutIn),
		Polled:        polled,
	}
	if t, err := time.Parse(time.RFC3339Nano, r.ExpireTime); err == nil {
		s.ExpireTime = t
	}
	return s
}

type mediaItemsResponse struct {
	MediaItems    []models.PickedMediaItem `json:"mediaItems"`
	NextPageToken string                   `json:"nextPageToken"`
}

// CreateSession starts a picking session limited to the configured item count.
func (c *PickerClient) CreateSession(ctx context.Context) (*models.PickerSession, error) {
	body := createSessionRequest{PickingConfig: pickingConfig{MaxItemCount: strconv.Itoa(c.maxItems)}}

	var resp sessionResponse
	if err := c.call(ctx, OpCreateSession, shared.ErrSessionCreateFailed, http.MethodPost, "/sessions", body, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.PickerURI == "" {
		return nil, fmt.Errorf("%w: response is missing id or pickerUri", shared.ErrSessionCreateFailed)
	}

	session := resp.session(false)
	c.logger.Info("picker session created", "session", session.ID, "expires", session.ExpireTime)
	return session, nil
}

// PollSession fetches the current state of a session once.
func (c *PickerClient) PollSession(ctx context.Context, sessionID string) (*models.PickerSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %w: session id is required", shared.ErrPollFailed, shared.ErrMissingArgument)
	}

	var resp sessionResponse
	endpoint := "/sessions/" + url.PathEscape(sessionID)
	if err := c.call(ctx, OpPollSession, shared.ErrPollFailed, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		resp.ID = sessionID
	}
	return resp.session(true), nil
}

// ListPickedItems returns every item picked in the session, following pagination.
//
// It returns an error wrapping [shared.ErrNotReadyYet] when the user has not finished picking.
func (c *PickerClient) ListPickedItems(ctx context.Context, sessionID string) ([]models.PickedMediaItem, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: %w: session id is required", shared.ErrResolveFailed, shared.ErrMissingArgument)
	}

	var (
		items     []models.PickedMediaItem
		pageToken string
	)
	for {
		q := url.Values{}
		q.Set("sessionId", sessionID)
		q.Set("pageSize", strconv.Itoa(mediaItemsPageSize))
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page mediaItemsResponse
		err := c.call(ctx, OpListItems, shared.ErrResolveFailed, http.MethodGet, "/mediaItems?"+q.Encode(), nil, &page)
		if err != nil {
			var pe *ProviderError
			if errors.As(err, &pe) && pe.notReady() {
				return nil, fmt.Errorf("%w: session %s", shared.ErrNotReadyYet, sessionID)
			}
			return nil, err
		}

		items = append(items, page.MediaItems...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	c.logger.Info("picked items resolved", "session", sessionID, "count", len(items))
	return items, nil
}

// call performs one authenticated request, retrying exactly once after a token refresh when
// the provider answers 401. Token errors are returned unchanged.
func (c *PickerClient) call(ctx context.Context, op string, sentinel error, method, endpoint string, body, result any) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	resp, data, err := c.doRequest(ctx, op, method, endpoint, body, tok)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", sentinel, op, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Debug("provider rejected access token, refreshing", "op", op)
		tok, err = c.tokens.ForceRefresh(ctx, tok.AccessToken)
		if err != nil {
			return err
		}
		resp, data, err = c.doRequest(ctx, op, method, endpoint, body, tok)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", sentinel, op, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := newProviderError(op, sentinel, resp, data)
		if !pe.notReady() {
			c.logger.Warn("provider call failed", "op", op, "status", resp.StatusCode, "error", pe.Message)
		}
		return pe
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("%w: %s: failed to decode response: %v", sentinel, op, err)
		}
	}
	return nil
}

// doRequest sends one request and reads the whole body.
func (c *PickerClient) doRequest(ctx context.Context, op, method, endpoint string, body any, tok *oauth2.Token) (*http.Response, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveProvider(op, 0)
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveProvider(op, resp.StatusCode)

	limit := int64(maxErrorBody)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, data, nil
}

// parseGoogleDuration parses protobuf JSON durations such as "5s" or "1.5s".
func parseGoogleDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
