package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/sessions"
	"github.com/spinnelein/familybook/internal/models"
	"github.com/spinnelein/familybook/internal/shared"
)

const (
	oauthCookie = "familybook_oauth"
	stateKey    = "state"
)

// AuthFlow begins and completes the Google authorization-code flow.
// [services.OAuthFlow] implements it.
type AuthFlow interface {
	Begin(redirectURI string) (authURL, state string, err error)
	Complete(ctx context.Context, callbackURL, redirectURI string) (*models.Credential, error)
}

// NewCookieStore returns the signed cookie store that binds an OAuth attempt to the browser.
// An empty secret gets a random per-process key, which invalidates cookies on restart.
func NewCookieStore(secret string) (*sessions.CookieStore, error) {
	key := []byte(secret)
	if len(key) == 0 {
		random, err := shared.GenerateState(32)
		if err != nil {
			return nil, err
		}
		key = []byte(random)
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store, nil
}

// AuthHandler serves /auth/start and /auth/callback for browser logins.
type AuthHandler struct {
	flow     AuthFlow
	cookies  sessions.Store
	redirect string
	logger   *log.Logger
}

// NewAuthHandler creates an AuthHandler that sends the browser to postAuthRedirect after a
// successful callback.
func NewAuthHandler(flow AuthFlow, cookies sessions.Store, postAuthRedirect string, logger *log.Logger) *AuthHandler {
	if postAuthRedirect == "" {
		postAuthRedirect = "/"
	}
	return &AuthHandler{
		flow:     flow,
		cookies:  cookies,
		redirect: postAuthRedirect,
		logger:   shared.WithLogger(logger, "component", "auth"),
	}
}

func (h *AuthHandler) Routes() []string {
	return []string{"GET /auth/start", "GET /auth/callback"}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/auth/start":
		h.start(w, r)
	case "/auth/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *AuthHandler) start(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.flow.Begin(r.URL.Query().Get("redirect_uri"))
	if err != nil {
		h.logger.Error("failed to begin authorization", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	session, _ := h.cookies.Get(r, oauthCookie)
	session.Values[stateKey] = state
	if err := session.Save(r, w); err != nil {
		h.logger.Error("failed to save oauth cookie", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	session, _ := h.cookies.Get(r, oauthCookie)
	bound, _ := session.Values[stateKey].(string)
	if bound == "" || bound != r.URL.Query().Get("state") {
		h.logger.Warn("oauth callback state does not match this browser")
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: state is not bound to this browser", shared.ErrStateMismatch))
		return
	}

	if _, err := h.flow.Complete(r.Context(), r.URL.String(), ""); err != nil {
		h.logger.Warn("oauth callback failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	delete(session.Values, stateKey)
	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to clear oauth cookie", "error", err)
	}

	http.Redirect(w, r, h.redirect, http.StatusFound)
}
