// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/game"
)

type createGameRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
	game.Options
}

type joinGameRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// joinResponse carries the player's credential for the game socket.
type joinResponse struct {
	GameID   uuid.UUID      `json:"gameId"`
	PlayerID uuid.UUID      `json:"playerId"`
	Token    string         `json:"token"`
	Game     *game.GameView `json:"game,omitempty"`
}

// CreateGameHandler creates a game hosted by the caller and returns the host's token.
func (s *APIServer) CreateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad game request payload", http.StatusBadRequest)
		return
	}
	if req.Password != "" {
		hash, err := s.HashPassword(req.Password)
		if err != nil {
			s.writeError(w, err)
			return
		}
		req.Options.PasswordHash = hash
	}

	state, host, err := s.Controller.CreateGame(r.Context(), req.Options, req.Nickname)
	if err != nil {
		s.writeError(w, err)
		return
	}
	token, err := s.Issuer.Issue(host.ID, state.Game.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := game.StripGameState(state)
	writeJSON(w, http.StatusCreated, joinResponse{
		GameID:   state.Game.ID,
		PlayerID: host.ID,
		Token:    token,
		Game:     &view,
	})
}

// JoinGameHandler adds the caller to an existing game and returns their token.
func (s *APIServer) JoinGameHandler(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return
	}
	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad join request payload", http.StatusBadRequest)
		return
	}

	player, err := s.Controller.AddPlayer(r.Context(), gameID, req.Nickname, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	token, err := s.Issuer.Issue(player.ID, gameID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{GameID: gameID, PlayerID: player.ID, Token: token})
}

// ListPacksHandler lists the card packs games can be created with.
func (s *APIServer) ListPacksHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog.List())
}
