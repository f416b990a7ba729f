package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Tokens this close to expiry are refreshed before use
const refreshBuffer = time.Minute

// refresher exchanges the latest refresh token for a new pair and stores
// it. Strava rotates refresh tokens, so the stored one is replaced every
// time.
type refresher struct {
	ctx   context.Context
	cfg   *oauth2.Config
	creds CredentialStore

	mu           sync.Mutex
	refreshToken string
}

func (r *refresher) Token() (*oauth2.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A token with no access token is never valid, so the config's
	// source goes straight to the refresh grant.
	tok, err := r.cfg.TokenSource(r.ctx, &oauth2.Token{RefreshToken: r.refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = r.refreshToken
	}

	if err := r.creds.UpdateTokens(r.ctx, tok.AccessToken, tok.RefreshToken, tok.Expiry); err != nil {
		return nil, fmt.Errorf("saving refreshed token: %w", err)
	}
	r.refreshToken = tok.RefreshToken
	return tok, nil
}

// NewTokenSource returns a source that hands out tok until it is within a
// minute of expiry, then refreshes and persists the new pair to creds.
func NewTokenSource(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token, creds CredentialStore) oauth2.TokenSource {
	r := &refresher{ctx: ctx, cfg: cfg, creds: creds, refreshToken: tok.RefreshToken}
	return oauth2.ReuseTokenSourceWithExpiry(tok, r, refreshBuffer)
}
