// file: controllers/debug_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/xsrftoken"
	"shareform/middleware"
)

var sessionSecret = "secret"

// SetSessionSecret sets the key CSRF tokens are derived from. It should be
// the same secret the cookie store uses.
func SetSessionSecret(secret string) {
	sessionSecret = secret
}

// csrfMessage is the /dbg response body.
type csrfMessage struct {
	Token string `json:"csrf_token"`
	Valid bool   `json:"valid"`
}

// csrfToken is bound to the visitor and to the request's method and path.
func csrfToken(c *gin.Context, visitor string) string {
	return xsrftoken.Generate(sessionSecret, visitor, c.Request.Method+c.Request.URL.Path)
}

func csrfValid(c *gin.Context, visitor, token string) bool {
	return xsrftoken.Valid(token, sessionSecret, visitor, c.Request.Method+c.Request.URL.Path)
}

// Debug issues a CSRF token for the current visitor and reports whether it
// validates. It must run behind SessionRequired.
func Debug(c *gin.Context) {
	visitor := c.GetString(middleware.VisitorKey)
	token := csrfToken(c, visitor)
	c.JSON(http.StatusOK, csrfMessage{Token: token, Valid: csrfValid(c, visitor, token)})
}
