package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the preview request ID in both directions.
	RequestIDHeader = "X-Request-ID"

	requestIDKey       = "request_id"
	clientRequestIDKey = "client_request_id"
)

// SecurityHeadersMiddleware adds security headers to all responses. The
// service only serves JSON, so nothing may be loaded or framed.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RequestIDMiddleware assigns every request a fresh ID. A well-formed
// incoming X-Request-ID is kept as the client request ID; clients reuse it
// on retries, so it never identifies a single request.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if parsed, err := uuid.Parse(c.GetHeader(RequestIDHeader)); err == nil {
			c.Set(clientRequestIDKey, parsed.String())
		}
		id := uuid.NewString()
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// ClientRequestID returns the caller's X-Request-ID, or "" when none was sent.
func ClientRequestID(c *gin.Context) string {
	return c.GetString(clientRequestIDKey)
}

// RequestID returns the ID assigned by RequestIDMiddleware, or a fresh one
// when the middleware is not installed.
func RequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	return uuid.NewString()
}
