// Package middleware provides request filters for the application.
// File: middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"shareform/logger"
)

// VisitorKey is the session key holding the visitor id set on first visit.
const VisitorKey = "visitor"

// -------------- session middleware --------------

// SessionRequired rejects requests that did not first load the form page.
// How it works:
// - Reads the visitor id from the session.
// - When it is missing, answers 403 and aborts.
// - Otherwise stores the id in the context under VisitorKey and continues.
// Usage:
//
//	router.GET("/ws", SessionRequired, handler)
func SessionRequired(c *gin.Context) {
	session := sessions.Default(c)
	visitor, ok := session.Get(VisitorKey).(string)

	if !ok || visitor == "" {
		logger.Warn.Printf("[SessionRequired] rejecting %s %s without session from %v",
			c.Request.Method, c.Request.URL.Path, c.ClientIP())
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	c.Set(VisitorKey, visitor)
	c.Next()
}
