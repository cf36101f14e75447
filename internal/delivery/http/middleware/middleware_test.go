package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/pkg/logger"
)

func TestRecovery_ReturnsInternalServerError(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("production", logger.WithOutput(&buf))

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
	assert.Contains(t, buf.String(), "panic: boom")
}

func TestLogger_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New("production", logger.WithOutput(&buf))

	handler := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["message"])
	assert.Equal(t, "/tea", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
}
