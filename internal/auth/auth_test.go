package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"runlytics/internal/store"
)

func TestCallback(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  bool
		status   int
	}{
		{"success", "?state=abc&code=xyz", "xyz", false, http.StatusOK},
		{"state mismatch", "?state=evil&code=xyz", "", true, http.StatusBadRequest},
		{"access denied", "?state=abc&error=access_denied", "", true, http.StatusBadRequest},
		{"missing code", "?state=abc", "", true, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := newCallback("abc")

			rec := httptest.NewRecorder()
			cb.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)

			require.Len(t, cb.results, 1)
			res := <-cb.results
			if tt.wantErr {
				assert.Error(t, res.err)
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCode, res.code)
		})
	}
}

func TestCallbackKeepsFirstResult(t *testing.T) {
	cb := newCallback("abc")
	cb.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=first", nil))
	cb.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=abc&code=second", nil))

	res := <-cb.results
	assert.Equal(t, "first", res.code)
	assert.Empty(t, cb.results)
}

func TestAthleteID(t *testing.T) {
	tok := (&oauth2.Token{AccessToken: "a"}).WithExtra(map[string]any{
		"athlete": map[string]any{"id": float64(12345)},
	})
	assert.Equal(t, int64(12345), athleteID(tok))
	assert.Equal(t, int64(0), athleteID(&oauth2.Token{}))
}

type memCredentials struct {
	auth    *store.Auth
	updates int
}

func (m *memCredentials) GetAuth(context.Context) (*store.Auth, error) {
	if m.auth == nil {
		return nil, store.ErrNoAuth
	}
	return m.auth, nil
}

func (m *memCredentials) SaveAuth(_ context.Context, a *store.Auth) error {
	m.auth = a
	return nil
}

func (m *memCredentials) UpdateTokens(_ context.Context, access, refresh string, expiresAt time.Time) error {
	m.updates++
	m.auth.AccessToken, m.auth.RefreshToken, m.auth.ExpiresAt = access, refresh, expiresAt
	return nil
}

func tokenServer(t *testing.T, hits *int32) *oauth2.Config {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600}`))
	}))
	t.Cleanup(srv.Close)

	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: srv.URL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestTokenSourceRefreshesNearExpiry(t *testing.T) {
	var hits int32
	cfg := tokenServer(t, &hits)
	creds := &memCredentials{auth: &store.Auth{AccessToken: "old-access", RefreshToken: "old-refresh"}}

	ts := NewTokenSource(context.Background(), cfg, &oauth2.Token{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		Expiry:       time.Now().Add(30 * time.Second),
	}, creds)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", tok.AccessToken)
	assert.Equal(t, 1, creds.updates)
	assert.Equal(t, "new-refresh", creds.auth.RefreshToken)

	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestEnsureTokenUsesStoredCredentials(t *testing.T) {
	var hits int32
	cfg := tokenServer(t, &hits)
	creds := &memCredentials{auth: &store.Auth{AthleteID: 7, AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}}

	ts, err := EnsureToken(context.Background(), creds, cfg, nil)
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, 0, creds.updates)
	assert.Zero(t, atomic.LoadInt32(&hits))
}
