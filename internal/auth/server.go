package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const callbackAddr = "localhost:8089"

// RedirectURL must match the callback domain registered for the Strava app
const RedirectURL = "http://" + callbackAddr + "/callback"

// loginTimeout bounds how long Login waits for the browser
const loginTimeout = 5 * time.Minute

const connectedPage = `<!DOCTYPE html>
<html><head><title>runlytics</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>runlytics is connected to Strava</h1>
<p>Return to the terminal; this tab can be closed.</p>
</body></html>`

// callbackResult is what the browser redirect delivered
type callbackResult struct {
	code string
	err  error
}

// callback answers the OAuth redirect. Only the first redirect is
// reported on results, later ones are answered and dropped.
type callback struct {
	state   string
	results chan callbackResult
}

func newCallback(state string) *callback {
	return &callback{state: state, results: make(chan callbackResult, 1)}
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/callback" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	var res callbackResult
	switch {
	case q.Get("state") != c.state:
		res.err = errors.New("oauth state mismatch")
	case q.Get("error") != "":
		res.err = fmt.Errorf("strava denied access: %s", q.Get("error"))
	case q.Get("code") == "":
		res.err = errors.New("oauth callback carried no code")
	default:
		res.code = q.Get("code")
	}

	if res.err != nil {
		http.Error(w, res.err.Error(), http.StatusBadRequest)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, connectedPage)
	}

	select {
	case c.results <- res:
	default:
	}
}

// Login runs the authorization code flow: it prints the Strava consent URL
// to out, waits for the redirect on a local server and exchanges the code.
func Login(ctx context.Context, cfg *oauth2.Config, out io.Writer) (*oauth2.Token, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("listening for oauth callback: %w", err)
	}

	cb := newCallback(state)
	srv := &http.Server{Handler: cb, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "\nOpen this URL to connect runlytics to Strava:\n\n  %s\n\nWaiting for the browser...\n",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	select {
	case res := <-cb.results:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("exchanging oauth code: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for strava login: %w", ctx.Err())
	}
}

func randomState() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
