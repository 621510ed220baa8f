package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient issues requests against an in-process http.Handler
type APIClient struct {
	Handler http.Handler
	Token   string
}

// Do sends a request with an optional JSON body and bearer token
func (c *APIClient) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)
	return w
}

// DecodeJSON parses the response body into T
func DecodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var result T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "Failed to parse JSON response: %s", w.Body.String())
	return result
}

// ErrorBody is the error envelope of the admin API
type ErrorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"request_id"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
}

// AssertErrorResponse asserts status and error code of an error envelope
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) ErrorBody {
	t.Helper()

	require.Equal(t, status, w.Code, "Unexpected status code: %s", w.Body.String())
	body := DecodeJSON[ErrorBody](t, w)
	assert.False(t, body.Success, "Expected success to be false")
	assert.Equal(t, code, body.Error.Code, "Unexpected error code")
	assert.NotEmpty(t, body.Error.RequestID, "Expected request_id in error")
	return body
}
