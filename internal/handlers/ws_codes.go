// internal/handlers/ws_codes.go
package handlers

import (
	"github.com/coder/websocket"
	"github.com/jason-s-yu/promptparty/internal/session"
)

// Custom WebSocket close codes used by the game handler.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // Provided token was invalid or expired.
	AlreadyConnectedError websocket.StatusCode = 3002 // Another live connection holds the player's presence lease.
	GameNotFoundError     websocket.StatusCode = 3003 // The token's game or player no longer exists.
	GameEndedError        websocket.StatusCode = 3004 // The game is over.
	PresenceLostError     websocket.StatusCode = 3005 // The presence lease lapsed while connected.
)

// closeCodeFor picks the close code for a failed connect.
func closeCodeFor(err error) websocket.StatusCode {
	switch session.Classify(err) {
	case session.ClassUnauthorized:
		return AlreadyConnectedError
	case session.ClassNotFound:
		return GameNotFoundError
	case session.ClassPrecondition:
		return GameEndedError
	default:
		return websocket.StatusInternalError
	}
}
