package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/spinnelein/familybook/internal/server"
	"github.com/spinnelein/familybook/internal/services"
	"github.com/spinnelein/familybook/internal/shared"
	"github.com/urfave/cli/v3"
)

type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	TokenPath     string    `json:"token_path"`
	Expired       bool      `json:"expired"`
	Expiry        time.Time `json:"expiry,omitzero"`
	CanRefresh    bool      `json:"can_refresh"`
	Scopes        []string  `json:"scopes,omitempty"`
	MissingScopes []string  `json:"missing_scopes,omitempty"`
}

// AuthLogin performs the authorization-code flow against a temporary loopback server.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, credentials, err := r.credentialStore()
	if err != nil {
		return err
	}

	redirectURI := cmd.String("redirect-uri")
	if redirectURI == "" {
		redirectURI = r.config.Google.RedirectURI
	}
	callback, err := url.Parse(redirectURI)
	if err != nil || callback.Host == "" || callback.Path == "" {
		return fmt.Errorf("%w: redirect uri %q must be an absolute http url", shared.ErrInvalidArgument, redirectURI)
	}

	listener, err := net.Listen("tcp", callback.Host)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", callback.Host, err)
	}
	// The port may have been 0.
	callback.Host = listener.Addr().String()
	redirectURI = callback.String()

	flow := services.NewOAuthFlow(oauthConfig, credentials, r.logger)
	authURL, _, err := flow.Begin(redirectURI)
	if err != nil {
		listener.Close()
		return err
	}

	handler := server.NewCallbackHandler(flow, redirectURI)
	mux := http.NewServeMux()
	mux.Handle("GET "+callback.Path, handler)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("callback server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	r.writePlain("Opening browser for Google authorization...\n")
	r.writePlain("If the browser doesn't open, visit this URL:\n\n%s\n\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	r.writePlain("Waiting for authorization...\n")

	timeout := cmd.Duration("timeout")
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			return err
		}
		r.writePlain("✓ Google account linked\n")
		r.writePlain("Token saved to: %s\n", credentials.Path())
		if missing := result.Credential.MissingScopes(services.PhotosPickerScope); len(missing) > 0 {
			r.writePlain("⚠ Missing scopes: %v\n", missing)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no authorization callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AuthStatus reports whether a credential is stored and whether it is usable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	_, credentials, err := r.credentialStore()
	if err != nil {
		return err
	}

	status := authStatus{TokenPath: credentials.Path()}
	cred, err := credentials.Credential()
	switch {
	case errors.Is(err, shared.ErrAuthenticationRequired):
	case err != nil:
		return err
	default:
		status.Authenticated = true
		status.Expired = cred.Expired(time.Now())
		status.Expiry = cred.Expiry
		status.CanRefresh = cred.CanRefresh()
		status.Scopes = cred.Scopes
		status.MissingScopes = cred.MissingScopes(services.PhotosPickerScope)
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlainHeader("Google Photos Authorization")
	if !status.Authenticated {
		r.writePlain("✗ Not linked\n")
		r.writePlain("Run 'familybook auth login' to link a Google account\n")
		return nil
	}

	r.writePlain("✓ Linked\n")
	r.writePlain("Token file: %s\n", status.TokenPath)
	if !status.Expiry.IsZero() {
		r.writePlain("Expires: %s\n", status.Expiry.Local().Format(time.RFC1123))
	}
	switch {
	case status.Expired && status.CanRefresh:
		r.writePlain("Access token expired; it will be refreshed on next use\n")
	case status.Expired:
		r.writePlain("⚠ Access token expired and cannot be refreshed; run 'familybook auth login'\n")
	}
	if len(status.MissingScopes) > 0 {
		r.writePlain("⚠ Missing scopes: %v\n", status.MissingScopes)
	}
	return nil
}
