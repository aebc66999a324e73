package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	apiPrefix = "/api/v4"

	// perPage is the page size requested from every list endpoint. 100 is
	// the maximum GitLab serves.
	perPage = 100
)

// Client is a GitLab API client bound to one host and one token. The zero
// value is not usable; construct it with NewClient.
type Client struct {
	// BaseURL is the host root without the /api/v4 prefix, e.g.
	// "https://gitlab.com". No trailing slash.
	BaseURL string
	// Token is the personal access token sent as a bearer credential.
	// Empty means unauthenticated requests.
	Token string
	// HTTPClient is the underlying HTTP client.
	HTTPClient *http.Client

	logger    *slog.Logger
	limiter   *rate.Limiter
	sessionID string
}

// NewClient creates a client for the given host. A trailing slash on the
// host is removed.
func NewClient(host, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(host, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		sessionID:  uuid.NewString(),
	}
}

// SetLogger replaces the logger used for request-level debug logging.
func (c *Client) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetRateLimit caps outgoing requests at rps requests per second. A rate
// of 0 or less removes the cap.
func (c *Client) SetRateLimit(rps float64) {
	if rps <= 0 {
		c.limiter = nil
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
}

// do performs a GET against an API path (relative to /api/v4) and returns
// the raw response. Non-2xx statuses are the caller's responsibility.
func (c *Client) do(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, ErrTransport("rate limit wait: %v", err)
		}
	}

	u := c.BaseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, ErrTransport("create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, ErrTransport("execute request: %v", err)
	}
	c.logger.Debug("gitlab api request",
		"method", http.MethodGet,
		"path", path,
		"page", query.Get("page"),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"session_id", c.sessionID,
		"request_id", requestID,
	)
	return resp, nil
}

// checkError classifies a non-2xx response into the client's error types,
// consuming the body for its message. It returns nil for 2xx responses
// without touching the body.
func checkError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	msg := apiMessage(body)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized("API error (HTTP %d): %s", resp.StatusCode, msg)
	case http.StatusNotFound:
		return ErrNotFound("API error (HTTP %d): %s", resp.StatusCode, msg)
	default:
		return ErrTransport("API error (HTTP %d): %s", resp.StatusCode, msg)
	}
}

// apiMessage extracts the human-readable message from a GitLab error body,
// which carries either a "message" or an "error" field. Falls back to the
// raw body.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}

// getJSON fetches a single resource and decodes the response body into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkError(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return ErrTransport("parse response: %v", err)
	}
	return nil
}

// pageJSON fetches one page of a list endpoint. The next page number is
// taken from the X-Next-Page response header; GitLab leaves it empty on
// the last page.
func pageJSON[T any](ctx context.Context, c *Client, path string, query url.Values, page int) ([]T, int, error) {
	q := url.Values{}
	for k, vs := range query {
		q[k] = vs
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.do(ctx, path, q)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if err := checkError(resp); err != nil {
		return nil, 0, err
	}

	var items []T
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, 0, ErrTransport("parse response: %v", err)
	}
	next := 0
	if v := resp.Header.Get("X-Next-Page"); v != "" {
		next, err = strconv.Atoi(v)
		if err != nil {
			return nil, 0, ErrTransport("parse X-Next-Page header %q: %v", v, err)
		}
	}
	return items, next, nil
}

// listPager builds a pager over a list endpoint with fixed extra query
// parameters.
func listPager[T any](c *Client, path string, query url.Values) *Pager[T] {
	return newPager(func(ctx context.Context, page int) ([]T, int, error) {
		return pageJSON[T](ctx, c, path, query, page)
	})
}

func groupPath(id int) string   { return fmt.Sprintf("/groups/%d", id) }
func projectPath(id int) string { return fmt.Sprintf("/projects/%d", id) }
