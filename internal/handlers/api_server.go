// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/promptparty/internal/auth"
	"github.com/jason-s-yu/promptparty/internal/broadcast"
	"github.com/jason-s-yu/promptparty/internal/middleware"
	"github.com/jason-s-yu/promptparty/internal/packs"
	"github.com/jason-s-yu/promptparty/internal/session"
	"github.com/sirupsen/logrus"
)

// DefaultHeartbeat renews the presence lease well inside its 30 second lifetime.
const DefaultHeartbeat = 10 * time.Second

// APIServer is the HTTP and WebSocket surface of one server instance.
type APIServer struct {
	Controller *session.Controller
	Catalog    *packs.Catalog
	Issuer     *auth.Issuer
	Hub        *broadcast.Hub
	Logger     *logrus.Logger

	// HashPassword turns a new game's password into the stored hash.
	HashPassword func(password string) (string, error)
	// Heartbeat is how often a live socket renews its presence lease.
	Heartbeat time.Duration
	// OriginPatterns are the origins allowed to open a socket.
	OriginPatterns []string
}

// Routes returns the server's handler with request logging applied.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/games", s.CreateGameHandler)
	mux.HandleFunc("POST /api/v1/games/{id}/join", s.JoinGameHandler)
	mux.HandleFunc("GET /api/v1/packs", s.ListPacksHandler)
	mux.HandleFunc("/game/ws", s.GameWSHandler)
	return middleware.LogMiddleware(s.Logger)(mux)
}

// statusFor maps an error class to the HTTP status surfaced to the caller.
func statusFor(class session.ErrorClass) int {
	switch class {
	case session.ClassPrecondition:
		return http.StatusConflict
	case session.ClassNotFound:
		return http.StatusNotFound
	case session.ClassUnauthorized:
		return http.StatusForbidden
	case session.ClassTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

func (s *APIServer) writeError(w http.ResponseWriter, err error) {
	class := session.Classify(err)
	status := statusFor(class)
	msg := err.Error()
	if class == session.ClassInternal {
		s.Logger.WithError(err).Error("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Class: string(class)})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
