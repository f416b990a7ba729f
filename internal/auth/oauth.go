package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/oauth2"

	"runlytics/internal/store"
)

// Endpoint is Strava's OAuth endpoint
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// Strava expects its scopes comma separated in a single value.
const scope = "read,activity:read_all"

// NewOAuthConfig returns the client config for the local callback flow
func NewOAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  RedirectURL,
		Scopes:       []string{scope},
	}
}

// CredentialStore persists the athlete's Strava credentials
type CredentialStore interface {
	GetAuth(ctx context.Context) (*store.Auth, error)
	SaveAuth(ctx context.Context, auth *store.Auth) error
	UpdateTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error
}

// athleteID reads the athlete id Strava embeds in the token response.
// It is zero when the response carries no athlete.
func athleteID(tok *oauth2.Token) int64 {
	athlete, _ := tok.Extra("athlete").(map[string]any)
	id, _ := athlete["id"].(float64)
	return int64(id)
}

func credentialsFromToken(tok *oauth2.Token) *store.Auth {
	return &store.Auth{
		AthleteID:    athleteID(tok),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}

func tokenFromCredentials(a *store.Auth) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  a.AccessToken,
		RefreshToken: a.RefreshToken,
		Expiry:       a.ExpiresAt,
		TokenType:    "Bearer",
	}
}

// EnsureToken returns a refreshing token source for the stored
// credentials. With nothing stored it first runs the browser login,
// writing instructions to out.
func EnsureToken(ctx context.Context, creds CredentialStore, cfg *oauth2.Config, out io.Writer) (oauth2.TokenSource, error) {
	stored, err := creds.GetAuth(ctx)
	switch {
	case errors.Is(err, store.ErrNoAuth):
		tok, err := Login(ctx, cfg, out)
		if err != nil {
			return nil, fmt.Errorf("logging in to strava: %w", err)
		}
		stored = credentialsFromToken(tok)
		if err := creds.SaveAuth(ctx, stored); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	return NewTokenSource(ctx, cfg, tokenFromCredentials(stored), creds), nil
}
