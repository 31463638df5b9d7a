// internal/session/controller.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/game"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/jason-s-yu/promptparty/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// Store is the transactional game record store.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (models.GameState, error)
	Create(ctx context.Context, state models.GameState) error
	Transact(ctx context.Context, id uuid.UUID, fn func(models.GameState) (models.GameState, error)) (models.GameState, error)
}

// Presence tracks which players hold a live connection.
type Presence interface {
	Acquire(ctx context.Context, playerID uuid.UUID, create bool) (bool, error)
	Release(ctx context.Context, playerID uuid.UUID) (bool, error)
	IsHeld(ctx context.Context, playerID uuid.UUID) (bool, error)
}

// Timeouts queues phase deadlines.
type Timeouts interface {
	Schedule(ctx context.Context, job scheduler.Job, delay time.Duration) error
	Clear(ctx context.Context, job scheduler.Job) error
}

// Notifier delivers redacted updates to the players of a game.
type Notifier interface {
	GameUpdated(ctx context.Context, gameID uuid.UUID, view game.GameView) error
	RoundUpdated(ctx context.Context, gameID uuid.UUID, roundIdx int, round models.Round) error
	// PlayerUpdated goes to the given player only.
	PlayerUpdated(ctx context.Context, gameID uuid.UUID, player models.Player) error
}

// Recorder appends applied transitions to the action history.
type Recorder interface {
	Record(ctx context.Context, action models.GameAction) error
}

// PasswordVerifier checks a candidate password against a stored hash.
type PasswordVerifier func(password, hash string) (bool, error)

// Controller turns player events and fired timeouts into engine transitions. Every change goes
// through Store.Transact, so player actions and timers for the same game are applied one at a
// time, in lock order, across all server instances.
type Controller struct {
	Engine   *game.Engine
	Store    Store
	Presence Presence
	Timeouts Timeouts
	Notifier Notifier
	Recorder Recorder
	Verify   PasswordVerifier
	Logger   logrus.FieldLogger
}

// notify selects which projections are broadcast after a transition.
type notify uint8

const (
	notifyGame notify = 1 << iota
	notifyRound
	notifyPlayers
	notifyAll = notifyGame | notifyRound | notifyPlayers
)

// timeoutActor is the actor recorded for transitions triggered by a fired timeout.
var timeoutActor = uuid.Nil

// CreateGame stores a new game hosted by nickname and returns it with the host player.
func (c *Controller) CreateGame(ctx context.Context, opts game.Options, nickname string) (models.GameState, models.Player, error) {
	state, err := c.Engine.NewGameState(opts, nickname)
	if err != nil {
		return models.GameState{}, models.Player{}, err
	}
	if err := c.Store.Create(ctx, state); err != nil {
		return models.GameState{}, models.Player{}, err
	}
	host := state.Players[0]
	c.Logger.WithFields(logrus.Fields{"game": state.Game.ID, "player": host.ID}).Info("game created")
	c.record(ctx, state.Game.ID, host.ID, "create_game", map[string]interface{}{"packs": state.Game.Packs})
	return state, host, nil
}

// AddPlayer registers a new player in a game after checking the game password.
func (c *Controller) AddPlayer(ctx context.Context, gameID uuid.UUID, nickname, password string) (models.Player, error) {
	current, err := c.Store.Get(ctx, gameID)
	if err != nil {
		return models.Player{}, err
	}
	if current.Game.HasPassword {
		ok, err := c.Verify(password, current.Game.Password)
		if err != nil {
			return models.Player{}, fmt.Errorf("verify game password: %w", err)
		}
		if !ok {
			return models.Player{}, ErrWrongPassword
		}
	}

	var player models.Player
	next, err := c.Store.Transact(ctx, gameID, func(s models.GameState) (models.GameState, error) {
		var (
			out models.GameState
			err error
		)
		out, player, err = c.Engine.AddPlayer(s, nickname)
		return out, err
	})
	if err != nil {
		return models.Player{}, err
	}
	c.broadcast(ctx, next, notifyGame)
	c.record(ctx, gameID, player.ID, "add_player", map[string]interface{}{"nickname": player.Nickname})
	return player, nil
}

// Connect admits a new connection for a player: the game must exist and not be over, the player
// must belong to it, and no other live connection may hold the player's presence lease.
func (c *Controller) Connect(ctx context.Context, gameID, playerID uuid.UUID) error {
	s, err := c.Store.Get(ctx, gameID)
	if err != nil {
		return err
	}
	if s.Player(playerID) < 0 {
		return game.ErrPlayerNotFound
	}
	if s.Game.Status == models.GameEnded {
		return game.ErrGameEnded
	}
	ok, err := c.Presence.Acquire(ctx, playerID, true)
	if err != nil {
		return err
	}
	if !ok {
		c.Logger.WithField("player", playerID).Warn("player is already connected")
		return ErrPresenceTaken
	}
	return nil
}

// Heartbeat renews the presence lease of a connected player. It reports false once the lease
// has lapsed.
func (c *Controller) Heartbeat(ctx context.Context, playerID uuid.UUID) (bool, error) {
	return c.Presence.Acquire(ctx, playerID, false)
}

// Handle applies one event sent by a player over the connection connID.
func (c *Controller) Handle(ctx context.Context, gameID, playerID uuid.UUID, connID string, ev Event) error {
	log := c.Logger.WithFields(logrus.Fields{"game": gameID, "player": playerID, "event": ev.Kind})
	log.Debug("handling event")

	var (
		fn   func(models.GameState) (models.GameState, error)
		what notify
	)
	switch ev.Kind {
	case EventJoin:
		return c.Join(ctx, gameID, playerID, connID)
	case EventDisconnect:
		return c.Disconnect(ctx, gameID, playerID, connID)
	case EventStartGame:
		what = notifyAll
		fn = func(s models.GameState) (models.GameState, error) {
			if !game.IsHost(s, playerID) {
				return s, game.ErrNotHost
			}
			return c.Engine.StartGame(s)
		}
	case EventEndGame:
		what = notifyGame
		fn = func(s models.GameState) (models.GameState, error) {
			if !game.IsHost(s, playerID) {
				return s, game.ErrNotHost
			}
			return c.Engine.EndGame(s)
		}
	case EventPickCards:
		what = notifyRound | notifyPlayers
		fn = func(s models.GameState) (models.GameState, error) {
			next, err := c.Engine.PickCards(s, ev.RoundIndex, playerID, ev.Cards)
			if err != nil || !game.PickComplete(next, ev.RoundIndex) {
				return next, err
			}
			return c.Engine.PlayRound(next, ev.RoundIndex)
		}
	case EventDiscardCards:
		what = notifyRound | notifyPlayers
		fn = func(s models.GameState) (models.GameState, error) {
			return c.Engine.DiscardCards(s, ev.RoundIndex, playerID, ev.Cards)
		}
	case EventDiscardPrompt:
		what = notifyRound | notifyPlayers
		fn = func(s models.GameState) (models.GameState, error) {
			return c.Engine.DiscardPrompt(s, ev.RoundIndex, playerID)
		}
	case EventRevealSubmission:
		what = notifyRound
		fn = func(s models.GameState) (models.GameState, error) {
			if err := requireJudge(s, ev.RoundIndex, playerID); err != nil {
				return s, err
			}
			next, err := c.Engine.RevealSubmission(s, ev.RoundIndex, ev.SubmissionIndex)
			if err != nil || !game.AllRevealed(next, ev.RoundIndex) {
				return next, err
			}
			return c.Engine.RevealRound(next, ev.RoundIndex)
		}
	case EventChooseWinner:
		what = notifyAll
		fn = func(s models.GameState) (models.GameState, error) {
			if err := requireJudge(s, ev.RoundIndex, playerID); err != nil {
				return s, err
			}
			next, err := c.Engine.ChooseWinner(s, ev.RoundIndex, ev.SubmissionIndex)
			if err != nil {
				return s, err
			}
			return c.endRound(next, ev.RoundIndex)
		}
	case EventStartNextRound:
		what = notifyAll
		fn = func(s models.GameState) (models.GameState, error) {
			if s.Player(playerID) < 0 {
				return s, game.ErrPlayerNotFound
			}
			return c.Engine.NewRound(s)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	if err := c.apply(ctx, gameID, fn, what); err != nil {
		log.WithError(err).Info("event rejected")
		return err
	}
	c.record(ctx, gameID, playerID, string(ev.Kind), ev.payload())
	return nil
}

// Join marks the player as connected over connID and tops up their hand in a running game.
func (c *Controller) Join(ctx context.Context, gameID, playerID uuid.UUID, connID string) error {
	err := c.apply(ctx, gameID, func(s models.GameState) (models.GameState, error) {
		return c.Engine.JoinPlayer(s, playerID, connID)
	}, notifyAll)
	if err != nil {
		return err
	}
	c.Logger.WithFields(logrus.Fields{"game": gameID, "player": playerID}).Info("player joined")
	c.record(ctx, gameID, playerID, string(EventJoin), nil)
	return nil
}

// Disconnect marks the player inactive and releases their presence lease. A connection that was
// already replaced by a newer one changes nothing. The lease is released even if the game could
// not be updated.
func (c *Controller) Disconnect(ctx context.Context, gameID, playerID uuid.UUID, connID string) error {
	replaced := false
	err := c.apply(ctx, gameID, func(s models.GameState) (models.GameState, error) {
		if idx := s.Player(playerID); idx >= 0 {
			bound := s.Players[idx].ConnID
			replaced = connID != "" && bound != "" && bound != connID
		}
		return c.Engine.LeavePlayer(s, playerID, connID)
	}, notifyGame)
	if replaced {
		return err
	}
	if _, relErr := c.Presence.Release(ctx, playerID); relErr != nil {
		c.Logger.WithError(relErr).WithField("player", playerID).Warn("releasing presence")
	}
	if err != nil {
		return err
	}
	c.Logger.WithFields(logrus.Fields{"game": gameID, "player": playerID}).Info("player left")
	c.record(ctx, gameID, playerID, string(EventDisconnect), nil)
	return nil
}

// endRound closes a round and, when a player reached the winning score, the game.
func (c *Controller) endRound(s models.GameState, roundIdx int) (models.GameState, error) {
	next, err := c.Engine.EndRound(s, roundIdx)
	if err != nil || !game.WinnerReached(next) {
		return next, err
	}
	return c.Engine.EndGame(next)
}

func requireJudge(s models.GameState, roundIdx int, playerID uuid.UUID) error {
	if roundIdx < 0 || roundIdx >= len(s.Rounds) {
		return game.ErrRoundNotFound
	}
	if !game.IsJudge(s, roundIdx, playerID) {
		return game.ErrNotJudge
	}
	return nil
}

// apply runs fn in the game's transaction, then moves the timeout jobs along and broadcasts.
func (c *Controller) apply(ctx context.Context, gameID uuid.UUID, fn func(models.GameState) (models.GameState, error), what notify) error {
	var prev models.GameState
	next, err := c.Store.Transact(ctx, gameID, func(s models.GameState) (models.GameState, error) {
		prev = s
		return fn(s)
	})
	if err != nil {
		return err
	}
	c.reschedule(ctx, prev, next)
	c.broadcast(ctx, next, what)
	if prev.Game.Status != models.GameEnded && next.Game.Status == models.GameEnded {
		points := make(map[string]interface{}, len(next.Players))
		for _, p := range next.Players {
			points[p.ID.String()] = p.Points
		}
		c.record(ctx, gameID, timeoutActor, models.ActionGameEnded, map[string]interface{}{"points": points})
	}
	return nil
}

// reschedule clears the jobs a transition superseded and schedules one job for the furthest
// deadline of the current round. Ended games keep no jobs.
func (c *Controller) reschedule(ctx context.Context, prev, next models.GameState) {
	log := c.Logger.WithField("game", next.Game.ID)

	var (
		keep    scheduler.Job
		due     time.Time
		hasNext bool
	)
	cur := next.CurrentRound()
	if cur >= 0 && next.Game.Status == models.GameRunning {
		var phase models.Phase
		phase, due, hasNext = next.Rounds[cur].Deadlines.Latest()
		keep = scheduler.Job{GameID: next.Game.ID, Round: cur, Kind: phase}
	}

	if hasNext && prev.CurrentRound() == cur && prev.Game.Status == models.GameRunning {
		if phase, at, ok := prev.Rounds[cur].Deadlines.Latest(); ok && phase == keep.Kind && at.Equal(due) {
			return
		}
	}

	rounds := map[int]bool{}
	if r := prev.CurrentRound(); r >= 0 {
		rounds[r] = true
	}
	if cur >= 0 {
		rounds[cur] = true
	}
	for r := range rounds {
		for _, phase := range models.Phases {
			job := scheduler.Job{GameID: next.Game.ID, Round: r, Kind: phase}
			if hasNext && job == keep {
				continue
			}
			if err := c.Timeouts.Clear(ctx, job); err != nil {
				log.WithError(err).WithField("job", job.ID()).Warn("clearing timeout")
			}
		}
	}

	if !hasNext {
		return
	}
	if err := c.Timeouts.Schedule(ctx, keep, due.Sub(c.Engine.Now())); err != nil {
		log.WithError(err).WithField("job", keep.ID()).Error("scheduling timeout")
	}
}

// broadcast sends the redacted projections of next. Delivery failures are logged only.
func (c *Controller) broadcast(ctx context.Context, next models.GameState, what notify) {
	id := next.Game.ID
	log := c.Logger.WithField("game", id)

	if what&notifyGame != 0 {
		if err := c.Notifier.GameUpdated(ctx, id, game.StripGameState(next)); err != nil {
			log.WithError(err).Warn("broadcasting game state")
		}
	}
	if r := next.CurrentRound(); what&notifyRound != 0 && r >= 0 {
		if err := c.Notifier.RoundUpdated(ctx, id, r, game.StripRound(next.Rounds[r])); err != nil {
			log.WithError(err).Warn("broadcasting round")
		}
	}
	if what&notifyPlayers != 0 {
		for _, p := range next.Players {
			if !p.IsActive || p.IsAI {
				continue
			}
			if err := c.Notifier.PlayerUpdated(ctx, id, game.StripPlayer(p)); err != nil {
				log.WithError(err).WithField("player", p.ID).Warn("sending player update")
			}
		}
	}
}

// record appends an action to the history. The history is best effort.
func (c *Controller) record(ctx context.Context, gameID, actorID uuid.UUID, action string, payload map[string]interface{}) {
	if c.Recorder == nil {
		return
	}
	err := c.Recorder.Record(ctx, models.GameAction{
		GameID:     gameID,
		ActorID:    actorID,
		ActionType: action,
		Payload:    payload,
		Timestamp:  c.Engine.Now().UnixMilli(),
	})
	if err != nil {
		c.Logger.WithError(err).WithFields(logrus.Fields{"game": gameID, "action": action}).Warn("recording action")
	}
}
