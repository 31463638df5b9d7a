// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/broadcast"
	"github.com/jason-s-yu/promptparty/internal/middleware"
	"github.com/jason-s-yu/promptparty/internal/session"
	"github.com/sirupsen/logrus"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
	// TypePing is the keep-alive message a client sends; the server answers TypePong.
	TypePing = "ping"
	TypePong = "pong"
)

// gameConn is one accepted game socket.
type gameConn struct {
	s        *APIServer
	c        *websocket.Conn
	gameID   uuid.UUID
	playerID uuid.UUID
	connID   string
	log      logrus.FieldLogger
}

// GameWSHandler upgrades /game/ws?token=... to the game socket. It authenticates the token,
// takes the player's presence lease, joins the player, then feeds inbound events to the
// controller until the socket closes.
func (s *APIServer) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	playerID, gameID, err := s.Issuer.Verify(requestToken(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"game"},
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		s.Logger.WithError(err).WithField("game", gameID).Warn("WebSocket accept error")
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	if c.Subprotocol() != "game" {
		c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := s.Controller.Connect(ctx, gameID, playerID); err != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"game": gameID, "player": playerID}).Info("rejecting game connection")
		c.Close(closeCodeFor(err), err.Error())
		return
	}
	middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

	gc := &gameConn{
		s:        s,
		c:        c,
		gameID:   gameID,
		playerID: playerID,
		connID:   uuid.NewString(),
		log:      s.Logger.WithFields(logrus.Fields{"game": gameID, "player": playerID}),
	}

	client := s.Hub.Register(gameID, playerID, sendBuffer)
	go gc.writeLoop(ctx, cancel, client.Send)

	err = gc.serve(ctx, cancel)

	s.Hub.Unregister(client)
	if derr := s.Controller.Disconnect(context.WithoutCancel(ctx), gameID, playerID, gc.connID); derr != nil {
		gc.log.WithError(derr).Warn("disconnecting player")
	}
	middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)

	var ce *closeError
	if errors.As(err, &ce) {
		c.Close(ce.code, ce.reason)
		return
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// closeError ends a connection with a specific close code.
type closeError struct {
	code   websocket.StatusCode
	reason string
}

func (e *closeError) Error() string { return e.reason }

// serve joins the player, then runs the heartbeat and the read loop.
func (gc *gameConn) serve(ctx context.Context, cancel context.CancelFunc) error {
	if err := gc.s.Controller.Handle(ctx, gc.gameID, gc.playerID, gc.connID, session.Event{Kind: session.EventJoin}); err != nil {
		gc.sendException(ctx, err)
		return &closeError{code: closeCodeFor(err), reason: err.Error()}
	}

	lost := make(chan error, 1)
	go func() {
		if err := gc.heartbeatLoop(ctx); err != nil {
			lost <- err
			cancel()
		}
	}()

	err := gc.readLoop(ctx)
	select {
	case herr := <-lost:
		return herr
	default:
		return err
	}
}

// heartbeatLoop renews the presence lease until ctx ends. It returns an error once the lease
// is gone.
func (gc *gameConn) heartbeatLoop(ctx context.Context) error {
	every := gc.s.Heartbeat
	if every <= 0 {
		every = DefaultHeartbeat
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := gc.heartbeat(ctx); err != nil {
				return err
			}
		}
	}
}

func (gc *gameConn) heartbeat(ctx context.Context) error {
	ok, err := gc.s.Controller.Heartbeat(ctx, gc.playerID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		gc.log.WithError(err).Warn("renewing presence")
		return nil
	}
	if !ok {
		gc.log.Warn("presence lease lapsed")
		return &closeError{code: PresenceLostError, reason: "Presence lease lapsed."}
	}
	return nil
}

// readLoop reads events from the client until the socket closes or the client disconnects.
func (gc *gameConn) readLoop(ctx context.Context) error {
	for {
		msgType, data, err := gc.c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			gc.log.Warnf("Received non-text message type %d. Ignoring.", msgType)
			continue
		}

		var ev session.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			gc.log.WithError(err).Warn("invalid JSON received")
			gc.sendException(ctx, session.ErrUnknownEvent)
			continue
		}

		switch ev.Kind {
		case TypePing:
			if err := gc.heartbeat(ctx); err != nil {
				return err
			}
			gc.write(ctx, []byte(`{"type":"`+TypePong+`"}`))
		case session.EventDisconnect:
			return nil
		default:
			gc.log.WithField("event", ev.Kind).Debug("received event")
			if err := gc.s.Controller.Handle(ctx, gc.gameID, gc.playerID, gc.connID, ev); err != nil {
				gc.sendException(ctx, err)
			}
		}
	}
}

// writeLoop drains the hub's queue for this socket.
func (gc *gameConn) writeLoop(ctx context.Context, cancel context.CancelFunc, send <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			if err := gc.write(ctx, msg); err != nil {
				cancel()
				return
			}
		}
	}
}

func (gc *gameConn) write(ctx context.Context, msg []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	err := gc.c.Write(writeCtx, websocket.MessageText, msg)
	if err != nil && ctx.Err() == nil {
		gc.log.WithError(err).Warn("Error writing WebSocket message")
	}
	return err
}

// sendException tells only this client why its event failed.
func (gc *gameConn) sendException(ctx context.Context, err error) {
	class := session.Classify(err)
	msg := err.Error()
	if class == session.ClassInternal {
		gc.log.WithError(err).Error("handling event")
		msg = "internal error"
	}
	data, encErr := broadcast.Encode(broadcast.TypeException, broadcast.ExceptionPayload{Class: string(class), Message: msg})
	if encErr != nil {
		gc.log.WithError(encErr).Error("encoding exception")
		return
	}
	gc.write(ctx, data)
}
