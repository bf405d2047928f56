package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/resilience"
)

func TestGenerateContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)

		json.NewEncoder(w).Encode(GenerateResponse{
			Candidates: []Candidate{{
				Content: Content{Parts: []Part{
					{Text: `{"accuracy_`},
					{Text: `score": 95}`},
				}},
				FinishReason: "STOP",
			}},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.GenerateContent(context.Background(), "audit this")
	require.NoError(t, err)
	assert.Equal(t, `{"accuracy_score": 95}`, resp.Text(), "parts of the first candidate concatenate")
}

func TestGenerateContent_ModelOption(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-exp:generateContent", r.URL.Path)
		json.NewEncoder(w).Encode(GenerateResponse{})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithModel("gemini-exp"))
	resp, err := c.GenerateContent(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, resp.Text(), "no candidates yields empty text")
}

func TestGenerateContent_TransientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := c.GenerateContent(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestGenerateContent_PermanentStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := c.GenerateContent(context.Background(), "hello")
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
