package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route for tab notifications
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Session (browser extension)
	mux.HandleFunc("/api/session", s.app.BridgeHandler.SessionUpdateHandler)       // POST - adopt captured session
	mux.HandleFunc("/api/session/logout", s.app.BridgeHandler.LogoutHandler)       // POST - clear session
	mux.HandleFunc("/api/ping", s.app.BridgeHandler.PingHandler)                   // GET - authoritative session state
	mux.HandleFunc("/api/candidates/extract", s.app.BridgeHandler.ExtractHandler)  // POST - raw profile HTML
	mux.HandleFunc("/api/candidates", s.app.BridgeHandler.SubmitHandler)           // POST - extracted candidate record
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)            // GET - indicator state

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// Everything else is a JSON 404
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
