// file: websocket/handler.go
package websocket

import (
	"net/http"

	"shareform/logger"
)

// ServeWs upgrades the request and attaches the new connection to the hub.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warn.Printf("[ServeWs] rejecting ws from %v: %v", r.RemoteAddr, err)
		return
	}

	c := newConnection(h, wsConn)
	if !h.join(c) {
		logger.Warn.Printf("[ServeWs] hub stopped; closing %v", r.RemoteAddr)
		_ = wsConn.Close()
		return
	}
	logger.Info.Printf("[ServeWs] ws connection %s from %v", c.id, r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}
