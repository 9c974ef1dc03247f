// package testing contains shared testing utilities
package testing

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/oauth2"
)

// StaticTokens is a token provider double. ForceRefresh swaps Access for Refreshed.
type StaticTokens struct {
	mu         sync.Mutex
	Access     string
	Refreshed  string
	Err        error
	RefreshErr error
	Refreshes  int
}

func NewStaticTokens(access, refreshed string) *StaticTokens {
	return &StaticTokens{Access: access, Refreshed: refreshed}
}

func (s *StaticTokens) Token(context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return &oauth2.Token{AccessToken: s.Access, TokenType: "Bearer"}, nil
}

func (s *StaticTokens) ForceRefresh(_ context.Context, _ string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Refreshes++
	if s.RefreshErr != nil {
		return nil, s.RefreshErr
	}
	s.Access = s.Refreshed
	return &oauth2.Token{AccessToken: s.Access, TokenType: "Bearer"}, nil
}

// RefreshCount returns how many times ForceRefresh was called.
func (s *StaticTokens) RefreshCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Refreshes
}

// MemoryStorage keeps stored media in a map.
type MemoryStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	BaseURL string
	PutErr  error
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{files: make(map[string][]byte), BaseURL: "/uploads"}
}

func (m *MemoryStorage) Put(_ context.Context, name, _ string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return "", m.PutErr
	}
	m.files[name] = append([]byte(nil), data...)
	return m.BaseURL + "/" + name, nil
}

func (m *MemoryStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStorage) Stats(context.Context) (*models.MediaStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.MediaStats{}
	for name, data := range m.files {
		kind := models.KindImage
		if len(name) > 4 && name[:4] == models.KindVideo.Prefix() {
			kind = models.KindVideo
		}
		stats.Observe(kind, int64(len(data)))
	}
	return stats, nil
}

// Names returns the stored names in sorted order.
func (m *MemoryStorage) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// File returns the stored bytes for name.
func (m *MemoryStorage) File(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[name]
}

// MakeImage encodes a w×h solid image in format. A transparent image is half see-through.
func MakeImage(t *testing.T, w, h int, format imaging.Format, transparent bool) []byte {
	t.Helper()
	fill := color.NRGBA{R: 200, G: 40, B: 40, A: 255}
	if transparent {
		fill.A = 128
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, fill), format); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
