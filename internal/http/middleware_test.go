package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware(), RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})
	router.GET("/client-id", func(c *gin.Context) {
		c.String(http.StatusOK, ClientRequestID(c))
	})
	return router
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	newMiddlewareRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}

func TestRequestIDMiddleware(t *testing.T) {
	router := newMiddlewareRouter()

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("keeps a valid incoming id as the client id", func(t *testing.T) {
		incoming := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/client-id", nil)
		req.Header.Set(RequestIDHeader, incoming)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, incoming, w.Body.String())
		assert.NotEqual(t, incoming, w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(RequestIDHeader, "'; DROP TABLE import_audit_events; --")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
		assert.NoError(t, err)

		req = httptest.NewRequest(http.MethodGet, "/client-id", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Empty(t, w.Body.String())
	})
}
