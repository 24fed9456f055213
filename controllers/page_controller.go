// Package controllers file: controllers/page_controller.go
package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/skip2/go-qrcode"
	"shareform/logger"
	"shareform/middleware"
	"shareform/models"
	"shareform/services"
	"shareform/websocket"
)

var (
	ApplicationURL string
	WebsocketURL   string
	QuietPeriod    = 400 * time.Millisecond

	schema = models.DefaultSchema()
)

// SetConfig sets the URLs the pages advertise and the debounce window the
// browser client uses.
func SetConfig(appURL, wsURL string, quiet time.Duration) {
	ApplicationURL = appURL
	WebsocketURL = wsURL
	if quiet > 0 {
		QuietPeriod = quiet
	}
	logger.Info.Printf("[SetConfig] ApplicationURL=%s, WebsocketURL=%s, quiet=%v", appURL, wsURL, QuietPeriod)
}

// SetSchema replaces the form schema served to peers.
func SetSchema(s *models.FormSchema) {
	schema = s
}

// Health answers load balancer checks.
func Health(c *gin.Context) {
	logger.Debug.Println("[Health] Health check requested")
	c.String(http.StatusOK, "OK")
}

// Index starts a visitor session on first visit and renders the form.
func Index(c *gin.Context) {
	session := sessions.Default(c)
	visitor, ok := session.Get(middleware.VisitorKey).(string)
	if !ok || visitor == "" {
		visitor = ulid.Make().String()
		session.Set(middleware.VisitorKey, visitor)
		if err := session.Save(); err != nil {
			logger.Error.Printf("[Index] Error saving session: %v", err)
			c.String(http.StatusInternalServerError, "session error")
			return
		}
		logger.Info.Printf("[Index] new session %s from %v", visitor, c.ClientIP())
	}

	c.HTML(http.StatusOK, "form.html", gin.H{
		"WebsocketURL":  WebsocketURL,
		"QuietPeriodMS": QuietPeriod.Milliseconds(),
		"Schema":        schema,
		"Visitor":       visitor,
		"Csrf":          csrfToken(c, visitor),
	})
}

// Schema returns the registry configuration so every peer builds an identical
// registry.
func Schema(c *gin.Context) {
	c.JSON(http.StatusOK, schema)
}

// GetQRCode returns a PNG of the application URL so another device can join.
func GetQRCode(c *gin.Context) {
	logger.Info.Println("[GetQRCode] Generating QR code")

	qrBytes, err := services.GenerateQRCode(ApplicationURL, 300, qrcode.Encode)
	if err != nil {
		logger.Error.Printf("[GetQRCode] Error generating QR code: %v", err)
		c.String(http.StatusInternalServerError, "QR generation failed")
		return
	}

	c.Header("Content-Disposition", "inline; filename=\"qrcode.png\"")
	c.Data(http.StatusOK, "image/png", qrBytes)
}

// Relay hands the request to the hub's WebSocket upgrade.
func Relay(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	}
}
