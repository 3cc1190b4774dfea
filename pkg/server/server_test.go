package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pvcast/pvcast/pkg/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerHandler(t *testing.T) {
	srv := &Server{
		reconciler:     forecast.NewReconciler(&mockEngine{}),
		serverName:     "pvcast",
		allowedOrigins: []string{"http://localhost:3000", "https://solar-pv-forecast.vercel.app"},
	}
	handler := srv.setupHandler()

	t.Run("Healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/healthz", nil))

		resp := w.Result()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "pvcast", resp.Header.Get("Server"))
		assert.Equal(t, "ok", w.Body.String())
	})

	t.Run("Metrics Exposed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	})

	t.Run("CORS Preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/forecast/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		resp := w.Result()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("CORS Disallowed Origin", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/forecast/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Result().Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("CORS Wildcard", func(t *testing.T) {
		wildcard := &Server{
			reconciler:     forecast.NewReconciler(&mockEngine{}),
			allowedOrigins: []string{"*"},
		}
		req := httptest.NewRequest("OPTIONS", "/forecast/", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		wildcard.setupHandler().ServeHTTP(w, req)

		assert.Equal(t, "https://anywhere.example.com", w.Result().Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("GET Forecast Not Allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/forecast/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Result().StatusCode)
	})
}

func TestWriteDetailError(t *testing.T) {
	w := httptest.NewRecorder()
	writeDetailError(w, "bad thing", http.StatusBadRequest)

	resp := w.Result()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.True(t, strings.Contains(w.Body.String(), `"detail":"Invalid request: bad thing"`), "body: %s", w.Body.String())
}
