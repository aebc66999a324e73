package gitlab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturedRequest holds details captured from an incoming HTTP request.
type capturedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
}

// requestRecorder is a thread-safe recorder for HTTP requests received by
// httptest servers.
type requestRecorder struct {
	mu       sync.Mutex
	requests []capturedRequest
}

func (r *requestRecorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, capturedRequest{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.RawQuery,
		Headers: req.Header.Clone(),
	})
}

func (r *requestRecorder) last() capturedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.requests) == 0 {
		return capturedRequest{}
	}
	return r.requests[len(r.requests)-1]
}

// jsonHandler returns an http.HandlerFunc that records the request and
// responds with the given status code and JSON body.
func jsonHandler(rec *requestRecorder, status int, respBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	c := NewClient("https://gitlab.example.com/", "tok")
	assert.Equal(t, "https://gitlab.example.com", c.BaseURL)
	assert.Equal(t, "tok", c.Token)
	require.NotNil(t, c.HTTPClient)
	assert.NotZero(t, c.HTTPClient.Timeout)
}

func TestClient_RequestShape(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"id":42,"name":"g","full_path":"g","web_url":"https://x/g"}`))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token")
	g, err := c.Group(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, g.ID)

	got := rec.last()
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/v4/groups/42", got.Path)
	assert.Equal(t, "Bearer secret-token", got.Headers.Get("Authorization"))
	assert.Equal(t, "application/json", got.Headers.Get("Accept"))
	assert.NotEmpty(t, got.Headers.Get("X-Request-ID"))
}

func TestClient_NoTokenMeansNoAuthHeader(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{"id":1}`))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.Group(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, rec.last().Headers.Get("Authorization"))
}

func TestClient_ListRequestsFullPages(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `[]`))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Groups().All(context.Background())
	require.NoError(t, err)

	got := rec.last()
	assert.Equal(t, "/api/v4/groups", got.Path)
	assert.Contains(t, got.Query, "page=1")
	assert.Contains(t, got.Query, "per_page=100")
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   any
		wantSubstr string
	}{
		{
			name:       "HTTP 401 unauthorized",
			status:     401,
			body:       `{"message":"401 Unauthorized"}`,
			wantType:   new(*UnauthorizedError),
			wantSubstr: "API error (HTTP 401): 401 Unauthorized",
		},
		{
			name:       "HTTP 403 forbidden",
			status:     403,
			body:       `{"message":"403 Forbidden"}`,
			wantType:   new(*UnauthorizedError),
			wantSubstr: "API error (HTTP 403)",
		},
		{
			name:       "HTTP 404 not found",
			status:     404,
			body:       `{"message":"404 Group Not Found"}`,
			wantType:   new(*NotFoundError),
			wantSubstr: "API error (HTTP 404): 404 Group Not Found",
		},
		{
			name:       "HTTP 500 internal error",
			status:     500,
			body:       `{"message":"internal error"}`,
			wantType:   new(*TransportError),
			wantSubstr: "API error (HTTP 500)",
		},
		{
			name:       "error field body",
			status:     500,
			body:       `{"error":"insufficient_scope"}`,
			wantType:   new(*TransportError),
			wantSubstr: "insufficient_scope",
		},
		{
			name:       "non-JSON body",
			status:     502,
			body:       "bad gateway",
			wantType:   new(*TransportError),
			wantSubstr: "API error (HTTP 502): bad gateway",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &requestRecorder{}
			srv := httptest.NewServer(jsonHandler(rec, tc.status, tc.body))
			defer srv.Close()

			c := NewClient(srv.URL, "tok")
			_, err := c.Group(context.Background(), 1)
			require.Error(t, err)
			assert.ErrorAs(t, err, tc.wantType)
			assert.Contains(t, err.Error(), tc.wantSubstr)
		})
	}
}

func TestClient_ExecuteRequestError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Group(context.Background(), 1)
	require.Error(t, err)
	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "execute request")
}

func TestClient_ParseResponseError(t *testing.T) {
	rec := &requestRecorder{}
	srv := httptest.NewServer(jsonHandler(rec, 200, `{not json`))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Group(context.Background(), 1)
	require.Error(t, err)
	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "parse response")
}

func TestClient_RateLimitWaitsForCanceledContext(t *testing.T) {
	c := NewClient("http://localhost:1", "tok")
	c.SetRateLimit(0.001)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Group(ctx, 1)
	require.Error(t, err)
	var transport *TransportError
	assert.ErrorAs(t, err, &transport)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestClient_SetRateLimitZeroClearsLimiter(t *testing.T) {
	c := NewClient("http://localhost:1", "tok")
	c.SetRateLimit(5)
	require.NotNil(t, c.limiter)
	c.SetRateLimit(0)
	assert.Nil(t, c.limiter)
}

func TestAPIMessage(t *testing.T) {
	assert.Equal(t, "404 Not Found", apiMessage([]byte(`{"message":"404 Not Found"}`)))
	assert.Equal(t, "denied", apiMessage([]byte(`{"error":"denied"}`)))
	assert.Equal(t, "plain text", apiMessage([]byte("plain text\n")))
}

func TestCheckError_SuccessLeavesBodyUnread(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Body:       http.NoBody,
	}
	assert.NoError(t, checkError(resp))
}
