// router.go
package main

import (
	"html/template"
	"net/http"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"shareform/config"
	"shareform/controllers"
	"shareform/middleware"
	"shareform/websocket"
)

const sessionName = "shareform"

// setupRouter wires every route onto a new gin engine.
func setupRouter(cfg *config.Config, hub *websocket.Hub, gatherer prometheus.Gatherer, tmpl *template.Template) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if !cfg.Production() {
		router.Use(gin.Logger())
	}

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Frame-Options", "SAMEORIGIN")
		c.Next()
	})

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, store))
	router.SetHTMLTemplate(tmpl)

	// public routes
	router.GET("/health", controllers.Health)
	router.GET("/", controllers.Index)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// routes for visitors who loaded the form
	visitor := router.Group("/", middleware.SessionRequired)
	{
		visitor.GET("/schema", controllers.Schema)
		visitor.GET("/qrcode", controllers.GetQRCode)
		visitor.GET("/dbg", controllers.Debug)
		visitor.GET("/ws", controllers.Relay(hub))
	}
	return router
}

// traced wraps h in an X-Ray segment per request. WebSocket upgrades bypass
// it; a relay connection outlives any request segment.
func traced(h http.Handler) http.Handler {
	t := xray.Handler(xray.NewFixedSegmentNamer(sessionName), h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			h.ServeHTTP(w, r)
			return
		}
		t.ServeHTTP(w, r)
	})
}
