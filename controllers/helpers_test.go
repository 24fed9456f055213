// file: controllers/helpers_test.go
package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"shareform/middleware"
)

// setupTestRouter creates a new Gin engine with session middleware and a
// minimal form template.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("testsession", store))

	tmpDir := t.TempDir()
	if err := createDummyTemplates(tmpDir); err != nil {
		t.Fatalf("Failed to create dummy templates: %v", err)
	}
	router.LoadHTMLGlob(filepath.Join(tmpDir, "*.html"))
	return router
}

// createDummyTemplates writes minimal HTML templates to dir.
func createDummyTemplates(dir string) error {
	templates := map[string]string{
		"form.html": `<html><body data-ws="{{.WebsocketURL}}" data-visitor="{{.Visitor}}">` +
			`{{range .Schema.ViewModels}}<fieldset>{{.Name}}</fieldset>{{end}}</body></html>`,
	}
	for name, content := range templates {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// startSession visits a helper route that stores a visitor id and returns the
// session cookie for later requests.
func startSession(t *testing.T, router *gin.Engine, visitor string) *http.Cookie {
	t.Helper()
	router.GET("/test-session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(middleware.VisitorKey, visitor)
		if err := session.Save(); err != nil {
			c.String(http.StatusInternalServerError, "session save failed")
			return
		}
		c.String(http.StatusOK, "session set")
	})

	req, _ := http.NewRequest("GET", "/test-session", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == "testsession" {
			return c
		}
	}
	t.Fatal("session cookie not found")
	return nil
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == "testsession" {
			return c
		}
	}
	return nil
}
