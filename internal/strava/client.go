package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// APIError is a non-200 response from the Strava API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	baseURL     string
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return NewClientWithHTTP(oauth2.NewClient(context.Background(), tokenSource), BaseURL)
}

// NewClientWithHTTP creates a client that sends requests through httpClient
// to baseURL. The caller is responsible for authentication.
func NewClientWithHTTP(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(),
		baseURL:     baseURL,
	}
}

// GetActivities fetches activities with pagination
// Returns activities after 'after' timestamp, up to 'perPage' results
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("fetching activities: %w", err)
	}
	return activities, nil
}

// GetActivityLaps fetches the laps recorded for an activity
func (c *Client) GetActivityLaps(ctx context.Context, activityID int64) ([]Lap, error) {
	var laps []Lap
	path := fmt.Sprintf("/activities/%d/laps", activityID)
	if err := c.getJSON(ctx, path, nil, &laps); err != nil {
		return nil, fmt.Errorf("fetching laps for %d: %w", activityID, err)
	}
	return laps, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	return resp, nil
}

// errorMessage pulls the human-readable part out of a Strava fault body,
// e.g. {"message":"Authorization Error","errors":[{"resource":"Athlete","code":"invalid"}]}.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}
	msg := gjson.GetBytes(body, "message").String()
	if detail := gjson.GetBytes(body, "errors.0.code").String(); detail != "" {
		field := gjson.GetBytes(body, "errors.0.field").String()
		if field == "" {
			field = gjson.GetBytes(body, "errors.0.resource").String()
		}
		msg = fmt.Sprintf("%s (%s %s)", msg, field, detail)
	}
	if msg == "" {
		return string(body)
	}
	return msg
}
