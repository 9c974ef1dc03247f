package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// PhotosPickerScope is the only scope requested: read-only access to items picked by the user.
const PhotosPickerScope = "https://www.googleapis.com/auth/photospicker.mediaitems.readonly"

const (
	stateBytes = 32
	stateTTL   = 10 * time.Minute
)

// AuthState is the OAuth flow state reported for status output.
type AuthState string

const (
	AuthIdle             AuthState = "idle"
	AuthAwaitingCallback AuthState = "awaiting_callback"
	AuthAuthenticated    AuthState = "authenticated"
)

// NewGoogleOAuthConfig builds the provider registration once from configuration.
func NewGoogleOAuthConfig(cfg shared.GoogleConfig) (*oauth2.Config, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: google.client_id is empty", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: google.client_secret is empty", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       []string{PhotosPickerScope},
		Endpoint:     google.Endpoint,
	}, nil
}

// CredentialSaver persists a freshly exchanged credential.
type CredentialSaver interface {
	Save(cred *models.Credential) error
	Authenticated() bool
}

type pendingAttempt struct {
	redirectURI string
	expires     time.Time
}

// OAuthFlow runs the authorization-code flow. Each Begin records a single-use state token
// in memory; Complete consumes it.
type OAuthFlow struct {
	config *oauth2.Config
	store  CredentialSaver
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]pendingAttempt
}

// NewOAuthFlow creates a flow for config that persists credentials to store.
func NewOAuthFlow(config *oauth2.Config, store CredentialSaver, logger *log.Logger) *OAuthFlow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OAuthFlow{
		config:  config,
		store:   store,
		logger:  shared.WithLogger(logger, "component", "oauth"),
		now:     time.Now,
		pending: make(map[string]pendingAttempt),
	}
}

// Begin returns the consent URL and the state token bound to this attempt. An empty
// redirectURI uses the configured one.
func (f *OAuthFlow) Begin(redirectURI string) (string, string, error) {
	if redirectURI == "" {
		redirectURI = f.config.RedirectURL
	}
	if redirectURI == "" {
		return "", "", fmt.Errorf("%w: redirect uri is required", shared.ErrInvalidConfig)
	}

	state, err := shared.GenerateState(stateBytes)
	if err != nil {
		return "", "", err
	}

	f.mu.Lock()
	f.pruneLocked()
	f.pending[state] = pendingAttempt{redirectURI: redirectURI, expires: f.now().Add(stateTTL)}
	f.mu.Unlock()

	authURL := f.configFor(redirectURI).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return authURL, state, nil
}

// Complete finishes the attempt identified by the callback's state parameter.
//
// An unknown, expired or mismatched state fails with [shared.ErrStateMismatch]. A callback that
// carries an error parameter fails with [shared.ErrAuthorizationDenied] and leaves the attempt
// pending. A rejected code exchange fails with [shared.ErrAuthFailed].
func (f *OAuthFlow) Complete(ctx context.Context, callbackURL, redirectURI string) (*models.Credential, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed callback url: %v", shared.ErrInvalidInput, err)
	}
	q := u.Query()
	state, reason, code := q.Get("state"), q.Get("error"), q.Get("code")

	f.mu.Lock()
	attempt, ok := f.pending[state]
	if ok && f.now().After(attempt.expires) {
		delete(f.pending, state)
		ok = false
	}
	if ok && reason == "" && code != "" && (redirectURI == "" || redirectURI == attempt.redirectURI) {
		delete(f.pending, state)
	}
	f.mu.Unlock()

	if state == "" || !ok {
		return nil, fmt.Errorf("%w: unknown or expired state", shared.ErrStateMismatch)
	}
	if redirectURI != "" && redirectURI != attempt.redirectURI {
		return nil, fmt.Errorf("%w: redirect uri differs from the one used to begin", shared.ErrStateMismatch)
	}
	if reason != "" {
		f.logger.Warn("authorization denied", "reason", reason)
		return nil, fmt.Errorf("%w: %s", shared.ErrAuthorizationDenied, reason)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: callback carried no code", shared.ErrAuthorizationDenied)
	}

	tok, err := f.configFor(attempt.redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	cred := models.CredentialFromToken(tok, f.config.Scopes)
	if missing := cred.MissingScopes(f.config.Scopes...); len(missing) > 0 {
		f.logger.Warn("provider granted fewer scopes than requested", "missing", missing)
	}
	if cred.RefreshToken == "" {
		f.logger.Warn("no refresh token returned; re-consent will be needed when the access token expires")
	}

	if err := f.store.Save(cred); err != nil {
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}

	f.logger.Info("google account linked", "expiry", cred.Expiry)
	return cred, nil
}

// State reports the flow state for a given attempt's state token.
func (f *OAuthFlow) State(state string) AuthState {
	f.mu.Lock()
	attempt, ok := f.pending[state]
	f.mu.Unlock()

	switch {
	case ok && !f.now().After(attempt.expires):
		return AuthAwaitingCallback
	case f.store.Authenticated():
		return AuthAuthenticated
	default:
		return AuthIdle
	}
}

// Pending returns the number of unexpired attempts awaiting a callback.
func (f *OAuthFlow) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked()
	return len(f.pending)
}

func (f *OAuthFlow) pruneLocked() {
	now := f.now()
	for k, a := range f.pending {
		if now.After(a.expires) {
			delete(f.pending, k)
		}
	}
}

func (f *OAuthFlow) configFor(redirectURI string) *oauth2.Config {
	c := *f.config
	c.RedirectURL = redirectURI
	return &c
}
