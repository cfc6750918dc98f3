package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ErrorResponse is the body respondWithError writes.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HTTPClient serves requests against a handler in-process.
type HTTPClient struct {
	t       testing.TB
	handler http.Handler
}

// NewHTTPClient creates a client for handler.
func NewHTTPClient(t testing.TB, handler http.Handler) *HTTPClient {
	return &HTTPClient{t: t, handler: handler}
}

// Do serves one request. A non-nil body is sent as JSON; headers may be nil.
func (c *HTTPClient) Do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("encode %s %s body: %v", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr
}

// Get serves a GET request.
func (c *HTTPClient) Get(path string) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.Do(http.MethodGet, path, nil, nil)
}

// PostJSON serves a POST request with body encoded as JSON.
func (c *HTTPClient) PostJSON(path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	return c.Do(http.MethodPost, path, body, nil)
}

// DecodeJSON decodes a response body into out, failing the test on bad JSON.
func DecodeJSON(t testing.TB, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %T from %q: %v", out, rr.Body.String(), err)
	}
}

// ErrorMessage returns the message of an error response. It reports a test
// error when the body is not an ErrorResponse.
func ErrorMessage(t testing.TB, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Errorf("expected a JSON error body, got %q", rr.Body.String())
		return ""
	}
	return body.Error
}
