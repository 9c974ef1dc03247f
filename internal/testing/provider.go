package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spinnelein/familybook/internal/models"
)

// FakeMedia is one downloadable file served by [FakeProvider].
type FakeMedia struct {
	Body        []byte
	ContentType string
	Status      int
}

// FakeProvider is an httptest server that behaves like the Photos Picker API and the
// signed media host. Sessions report mediaItemsSet once more than ReadyAfter polls happened.
type FakeProvider struct {
	*httptest.Server

	mu           sync.Mutex
	ValidToken   string // when set, other bearer tokens get 401
	ReadyAfter   int
	PageSize     int
	PollInterval string
	TimeoutIn    string
	CreateStatus int // non-zero forces POST /sessions to fail with this status
	PollStatus   int
	ListStatus   int
	ErrorBody    string

	items     []models.PickedMediaItem
	media     map[string]FakeMedia
	polls     map[string]int
	sessions  int
	downloads []string
	authSeen  []string
}

// NewFakeProvider starts a fake provider that is closed when the test ends.
func NewFakeProvider(t *testing.T) *FakeProvider {
	t.Helper()
	p := &FakeProvider{
		PageSize:     100,
		PollInterval: "0.01s",
		TimeoutIn:    "60s",
		media:        make(map[string]FakeMedia),
		polls:        make(map[string]int),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serve))
	t.Cleanup(p.Close)
	return p
}

// APIBaseURL is the value for picker.api_base_url.
func (p *FakeProvider) APIBaseURL() string { return p.URL + "/v1" }

// AddItem registers a picked item whose base URL points at this server.
func (p *FakeProvider) AddItem(id, filename, mimeType string, media FakeMedia) models.PickedMediaItem {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := models.PickedMediaItem{
		ID:   id,
		Type: "PHOTO",
		MediaFile: models.MediaFile{
			BaseURL:  p.URL + "/media/" + id,
			MimeType: mimeType,
			Filename: filename,
		},
	}
	if strings.HasPrefix(mimeType, "video/") {
		item.Type = "VIDEO"
	}
	p.items = append(p.items, item)
	p.media[id] = media
	return item
}

// Polls returns how many times the session was polled.
func (p *FakeProvider) Polls(sessionID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.polls[sessionID]
}

// Sessions returns how many sessions were created.
func (p *FakeProvider) Sessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions
}

// Downloads returns the requested media paths, including the =d or =dv suffix.
func (p *FakeProvider) Downloads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.downloads...)
}

// AuthHeaders returns every Authorization header seen, in order.
func (p *FakeProvider) AuthHeaders() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.authSeen...)
}

func (p *FakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	auth := r.Header.Get("Authorization")
	p.authSeen = append(p.authSeen, auth)
	if p.ValidToken != "" && auth != "Bearer "+p.ValidToken {
		p.writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid credentials")
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/sessions":
		p.createSession(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/sessions/"):
		p.pollSession(w, strings.TrimPrefix(r.URL.Path, "/v1/sessions/"))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/mediaItems":
		p.listItems(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/media/"):
		p.download(w, strings.TrimPrefix(r.URL.Path, "/media/"))
	default:
		p.writeError(w, http.StatusNotFound, "NOT_FOUND", "no route "+r.URL.Path)
	}
}

func (p *FakeProvider) createSession(w http.ResponseWriter, r *http.Request) {
	if p.CreateStatus != 0 {
		p.writeError(w, p.CreateStatus, "INTERNAL", "create failed")
		return
	}

	var body struct {
		PickingConfig struct {
			MaxItemCount string `json:"maxItemCount"`
		} `json:"pickingConfig"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PickingConfig.MaxItemCount == "" {
		p.writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "pickingConfig.maxItemCount is required")
		return
	}

	p.sessions++
	id := fmt.Sprintf("session-%d", p.sessions)
	p.writeJSON(w, p.sessionBody(id, false))
}

func (p *FakeProvider) pollSession(w http.ResponseWriter, id string) {
	if p.PollStatus != 0 {
		p.writeError(w, p.PollStatus, "INTERNAL", "poll failed")
		return
	}
	p.polls[id]++
	p.writeJSON(w, p.sessionBody(id, p.polls[id] > p.ReadyAfter))
}

func (p *FakeProvider) listItems(w http.ResponseWriter, r *http.Request) {
	if p.ListStatus != 0 {
		p.writeError(w, p.ListStatus, "INTERNAL", "list failed")
		return
	}

	id := r.URL.Query().Get("sessionId")
	if p.polls[id] <= p.ReadyAfter {
		p.writeError(w, http.StatusBadRequest, "FAILED_PRECONDITION", "The user has not finished picking media items.")
		return
	}

	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	end := start + p.PageSize
	if end > len(p.items) {
		end = len(p.items)
	}

	resp := map[string]any{"mediaItems": p.items[start:end]}
	if end < len(p.items) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	p.writeJSON(w, resp)
}

func (p *FakeProvider) download(w http.ResponseWriter, path string) {
	p.downloads = append(p.downloads, path)

	id, _, _ := strings.Cut(path, "=")
	m, ok := p.media[id]
	if !ok {
		http.NotFound(w, nil)
		return
	}
	if m.Status != 0 && m.Status != http.StatusOK {
		w.WriteHeader(m.Status)
		return
	}
	if m.ContentType != "" {
		w.Header().Set("Content-Type", m.ContentType)
	}
	w.Write(m.Body)
}

func (p *FakeProvider) sessionBody(id string, ready bool) map[string]any {
	return map[string]any{
		"id":            id,
		"pickerUri":     p.URL + "/pick/" + id,
		"mediaItemsSet": ready,
		"expireTime":    time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"pollingConfig": map[string]string{
			"pollInterval": p.PollInterval,
			"timeoutIn":    p.TimeoutIn,
		},
	}
}

func (p *FakeProvider) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (p *FakeProvider) writeError(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if p.ErrorBody != "" {
		w.Write([]byte(p.ErrorBody))
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message, "status": status},
	})
}
