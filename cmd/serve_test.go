package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veracity-group/truthscan-cli/internal/config"
)

func init() {
	cfg = &config.Config{Tenant: "default"}
}

func TestServeHealth(t *testing.T) {
	router := newRouter(&appEnv{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeSingleProviderAudit_UnknownProvider(t *testing.T) {
	router := newRouter(&appEnv{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/audits/e1/copilot", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeSetStatus_BadBody(t *testing.T) {
	router := newRouter(&appEnv{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/hallucinations/h1/status", strings.NewReader("{")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeClassifyExtractions(t *testing.T) {
	router := newRouter(&appEnv{})

	body := `{"items": [
		{"label": "menu.espresso.price", "value": "3.50", "confidence": 0.91},
		{"label": "menu.toast.price", "value": "7.00", "confidence": 0.45}
	], "certified": true}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/extractions/classify", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []struct {
			Tier string `json:"tier"`
		} `json:"items"`
		CanPublish bool `json:"can_publish"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "auto", resp.Items[0].Tier)
	assert.Equal(t, "blocked", resp.Items[1].Tier)
	assert.False(t, resp.CanPublish, "a blocked item vetoes the batch even when certified")
}

func TestTenantOf(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	assert.Equal(t, "default", tenantOf(req))

	req.Header.Set("X-Tenant-ID", "acme")
	assert.Equal(t, "acme", tenantOf(req))
}
