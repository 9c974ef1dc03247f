package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/metrics"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/oauth2"
)

// TokenProvider hands out valid access tokens for provider calls.
//
// ForceRefresh is used after the provider rejected rejected (an access token) with 401.
// Implementations skip the refresh when another caller already replaced that token.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
	ForceRefresh(ctx context.Context, rejected string) (*oauth2.Token, error)
}

// CredentialStore persists the single linked account's OAuth credential as a JSON file and
// refreshes it on demand. All refreshes are serialized by one mutex.
type CredentialStore struct {
	path   string
	config *oauth2.Config
	logger *log.Logger
	now    func() time.Time

	mu     sync.Mutex
	cred   *models.Credential
	loaded bool
	// modTime and size of the file the cached credential came from.
	modTime time.Time
	size    int64
}

// NewCredentialStore creates a store backed by the file at path. config supplies the token
// endpoint and client credentials used for refresh.
func NewCredentialStore(path string, config *oauth2.Config, logger *log.Logger) *CredentialStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &CredentialStore{
		path:   path,
		config: config,
		logger: shared.WithLogger(logger, "component", "credentials"),
		now:    time.Now,
	}
}

// Path returns the credential file location.
func (s *CredentialStore) Path() string { return s.path }

// Credential returns a copy of the stored credential or [shared.ErrAuthenticationRequired].
func (s *CredentialStore) Credential() (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	c := *cred
	return &c, nil
}

// Authenticated reports whether a credential is stored. It does not check expiry.
func (s *CredentialStore) Authenticated() bool {
	_, err := s.Credential()
	return err == nil
}

// Save overwrites the stored credential. The file is replaced atomically with mode 0600.
func (s *CredentialStore) Save(cred *models.Credential) error {
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(cred)
}

// Token returns a non-expired access token, refreshing it when needed.
//
// Errors are [shared.ErrAuthenticationRequired] when nothing is stored and
// [shared.ErrRefreshFailed] when the token is expired and cannot be refreshed.
func (s *CredentialStore) Token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	if !cred.Expired(s.now()) {
		return cred.Token(), nil
	}

	fresh, err := s.refreshLocked(ctx, cred)
	if err != nil {
		return nil, err
	}
	return fresh.Token(), nil
}

// ForceRefresh refreshes the access token regardless of its expiry unless the stored token
// already differs from rejected.
func (s *CredentialStore) ForceRefresh(ctx context.Context, rejected string) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	if rejected != "" && cred.AccessToken != rejected && !cred.Expired(s.now()) {
		return cred.Token(), nil
	}

	fresh, err := s.refreshLocked(ctx, cred)
	if err != nil {
		return nil, err
	}
	return fresh.Token(), nil
}

func (s *CredentialStore) refreshLocked(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if !cred.CanRefresh() {
		metrics.TokenRefreshes.WithLabelValues("no_refresh_token").Inc()
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	src := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		s.logger.Warn("token refresh rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	fresh := models.CredentialFromToken(tok, cred.Scopes)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cred.RefreshToken
	}

	if err := s.saveLocked(fresh); err != nil {
		metrics.TokenRefreshes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	metrics.TokenRefreshes.WithLabelValues("ok").Inc()
	s.logger.Debug("access token refreshed", "expiry", fresh.Expiry)
	return fresh, nil
}

// loadLocked returns the cached credential while the file is unchanged and re-reads it when
// another process (such as a separate login) replaced it.
func (s *CredentialStore) loadLocked() (*models.Credential, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.cred, s.loaded = nil, false
		return nil, shared.ErrAuthenticationRequired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	if s.loaded && info.ModTime().Equal(s.modTime) && info.Size() == s.size {
		return s.cred, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, shared.ErrAuthenticationRequired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		s.logger.Warn("stored credential is unreadable", "path", s.path, "error", err)
		return nil, fmt.Errorf("%w: unreadable credential file: %v", shared.ErrAuthenticationRequired, err)
	}
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthenticationRequired, err)
	}

	if s.loaded {
		s.logger.Info("credential file changed on disk, reloaded", "path", s.path)
	}
	s.cred = &cred
	s.loaded = true
	s.modTime, s.size = info.ModTime(), info.Size()
	return s.cred, nil
}

func (s *CredentialStore) saveLocked(cred *models.Credential) error {
	c := *cred
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = s.now()
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	if err := writeFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}

	s.cred = &c
	s.loaded = true
	if info, err := os.Stat(s.path); err == nil {
		s.modTime, s.size = info.ModTime(), info.Size()
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
