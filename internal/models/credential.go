package models

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// expirySkew treats tokens this close to expiry as already expired, matching [oauth2.Token.Valid].
const expirySkew = 10 * time.Second

// Credential is the OAuth token of the one linked Google account.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialFromToken converts an exchanged token. The granted scopes are read from the
// token response's "scope" field, falling back to requested when the provider omitted it.
func CredentialFromToken(tok *oauth2.Token, requested []string) *Credential {
	scopes := requested
	if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		scopes = strings.Fields(raw)
	}

	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       scopes,
		UpdatedAt:    time.Now(),
	}
}

// Token returns the credential as an [oauth2.Token].
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// Expired reports whether the access token is unusable at now. A zero expiry never expires.
func (c *Credential) Expired(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Add(expirySkew).Before(c.Expiry)
}

// CanRefresh reports whether a refresh token is available.
func (c *Credential) CanRefresh() bool {
	return c.RefreshToken != ""
}

// MissingScopes returns the entries of required that were not granted.
func (c *Credential) MissingScopes(required ...string) []string {
	granted := make(map[string]bool, len(c.Scopes))
	for _, s := range c.Scopes {
		granted[s] = true
	}

	var missing []string
	for _, s := range required {
		if !granted[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// AuthorizationHeader returns the value sent in the Authorization header.
func (c *Credential) AuthorizationHeader() string {
	return c.Token().Type() + " " + c.AccessToken
}

func (c *Credential) Validate() error {
	if c.AccessToken == "" {
		return errMissingField("access_token")
	}
	return nil
}
