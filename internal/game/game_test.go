// internal/game/game_test.go
package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/promptparty/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// packMap is an in-memory PackSource.
type packMap map[string]models.Pack

func (m packMap) Pack(abbr string) (models.Pack, bool) {
	p, ok := m[abbr]
	return p, ok
}

// makePack builds a pack with uniquely worded cards.
func makePack(abbr string, prompts, responses, pick int) models.Pack {
	p := models.Pack{Abbr: abbr, Name: "Pack " + abbr}
	for i := 0; i < prompts; i++ {
		p.Prompts = append(p.Prompts, models.PackPrompt{Text: fmt.Sprintf("%s prompt %d", abbr, i), Pick: pick})
	}
	for i := 0; i < responses; i++ {
		p.Responses = append(p.Responses, fmt.Sprintf("%s response %d", abbr, i))
	}
	return p
}

// newTestEngine returns an engine with a fixed clock and a shuffle that keeps order, so seating,
// piles and submissions stay predictable.
func newTestEngine(packs ...models.Pack) *Engine {
	src := packMap{}
	for _, p := range packs {
		src[p.Abbr] = p
	}
	return &Engine{
		Packs:   src,
		Now:     func() time.Time { return testNow },
		Shuffle: func(int, func(i, j int)) {},
		NewID:   uuid.New,
	}
}

// setupGame creates a game with the given number of connected human players.
func setupGame(t *testing.T, e *Engine, humans int, opts Options) models.GameState {
	t.Helper()
	s, err := e.NewGameState(opts, "host")
	require.NoError(t, err)
	for i := 1; i < humans; i++ {
		s, _, err = e.AddPlayer(s, fmt.Sprintf("player%d", i))
		require.NoError(t, err)
	}
	for _, p := range s.Players {
		if p.IsAI {
			continue
		}
		s, err = e.JoinPlayer(s, p.ID, "conn-"+p.Nickname)
		require.NoError(t, err)
	}
	return s
}

func startedGame(t *testing.T, e *Engine, humans int, opts Options) models.GameState {
	t.Helper()
	s := setupGame(t, e, humans, opts)
	s, err := e.StartGame(s)
	require.NoError(t, err)
	return s
}

func intPtr(i int) *int { return &i }

// assertConservation checks that no card was lost or duplicated.
func assertConservation(t *testing.T, s models.GameState, prompts, responses int) {
	t.Helper()
	assert.Equal(t, prompts, s.Piles.PromptCount(), "prompt count changed")

	held := s.Piles.ResponseCount()
	seen := map[string]string{}
	mark := func(where string, cards []models.ResponseCard) {
		for _, c := range cards {
			if prev, ok := seen[c.Value]; ok {
				t.Errorf("card %q is in %s and %s", c.Value, prev, where)
			}
			seen[c.Value] = where
		}
	}
	mark("response pile", s.Piles.Responses)
	mark("response discard", s.Piles.DiscardedResponses)
	for _, p := range s.Players {
		held += len(p.Hand)
		mark("hand of "+p.Nickname, p.Hand)
	}
	assert.Equal(t, responses, held, "response count changed")
}

// submissionOf returns the index of the player's submission in a round.
func submissionOf(t *testing.T, r models.Round, playerID uuid.UUID) int {
	t.Helper()
	for i, sub := range r.Submissions {
		if sub.PlayerID == playerID {
			return i
		}
	}
	t.Fatalf("player %s has no submission", playerID)
	return -1
}

func pickFirst(t *testing.T, e *Engine, s models.GameState, playerIdx int) models.GameState {
	t.Helper()
	round := s.CurrentRound()
	p := s.Players[playerIdx]
	pick := s.Rounds[round].Prompt.Pick
	next, err := e.PickCards(s, round, p.ID, p.Hand[:pick])
	require.NoError(t, err)
	return next
}

func TestBuildPiles(t *testing.T) {
	a := makePack("a", 3, 5, 2)
	b := makePack("b", 2, 2, 1)
	// Duplicate texts across packs are dealt once.
	b.Responses = append(b.Responses, "a response 0")
	b.Prompts = append(b.Prompts, models.PackPrompt{Text: "a prompt 0", Pick: 1})
	e := newTestEngine(a, b)

	piles, err := e.BuildPiles([]string{"a", "b"}, true)
	require.NoError(t, err)
	assert.Len(t, piles.Prompts, 5)
	assert.Len(t, piles.Responses, 7)
	assert.Empty(t, piles.DiscardedPrompts)
	assert.Empty(t, piles.DiscardedResponses)
	for _, p := range piles.Prompts {
		assert.Equal(t, p.Pick-1, p.Draw, "pick extra gives pick-1 draw")
		assert.Equal(t, models.CardText, p.Type)
	}

	piles, err = e.BuildPiles([]string{"a"}, false)
	require.NoError(t, err)
	for _, p := range piles.Prompts {
		assert.Equal(t, 0, p.Draw, "pick 2 without pick extra gives no draw")
	}

	_, err = e.BuildPiles([]string{"a", "missing"}, false)
	assert.ErrorIs(t, err, ErrUnknownPack)
}

func TestPromptDraw(t *testing.T) {
	assert.Equal(t, 0, promptDraw(1, true))
	assert.Equal(t, 2, promptDraw(3, true))
	assert.Equal(t, 0, promptDraw(1, false))
	assert.Equal(t, 0, promptDraw(2, false))
	assert.Equal(t, 1, promptDraw(3, false))
}

func TestNewGameState(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))

	s, err := e.NewGameState(Options{Packs: []string{"base"}, Rules: models.SpecialRules{AIPlayers: 2}}, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, models.GameCreated, s.Game.Status)
	assert.Equal(t, DefaultHandSize, s.Game.HandSize)
	assert.Equal(t, DefaultWinnerPoints, s.Game.WinnerPoints)
	assert.Equal(t, DefaultTimeouts, s.Game.Timeouts)
	require.Len(t, s.Players, 3)
	assert.Equal(t, "alice", s.Players[0].Nickname)
	assert.True(t, s.Players[0].IsHost)
	assert.True(t, s.Players[1].IsAI)
	assert.True(t, s.Players[2].IsAI)
	assert.NotEqual(t, s.Players[1].Nickname, s.Players[2].Nickname)

	s, err = e.NewGameState(Options{WinnerPoints: intPtr(0)}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Game.WinnerPoints, "zero disables the win condition")

	_, err = e.NewGameState(Options{Packs: []string{"nope"}}, "carol")
	assert.ErrorIs(t, err, ErrUnknownPack)

	_, err = e.NewGameState(Options{}, " ")
	assert.ErrorIs(t, err, ErrMissingNickname)

	_, err = e.NewGameState(Options{HandSize: -1}, "dave")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestAddPlayerNicknameTaken(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s, err := e.NewGameState(Options{Packs: []string{"base"}}, "alice")
	require.NoError(t, err)

	_, _, err = e.AddPlayer(s, "ALICE")
	assert.ErrorIs(t, err, ErrNicknameTaken)

	next, p, err := e.AddPlayer(s, "bob")
	require.NoError(t, err)
	assert.Len(t, next.Players, 2)
	assert.Len(t, s.Players, 1, "input must not change")
	assert.False(t, p.IsActive)
}

func TestStartGameNeedsTwoHumans(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 200, 1))
	s := setupGame(t, e, 1, Options{Packs: []string{"base"}, Rules: models.SpecialRules{AIPlayers: 3}})

	_, err := e.StartGame(s)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestStartGameNeedsThreeActive(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 200, 1))
	s := setupGame(t, e, 2, Options{Packs: []string{"base"}})
	_, err := e.StartGame(s)
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	// One AI filler makes up the quorum.
	s = setupGame(t, e, 2, Options{Packs: []string{"base"}, Rules: models.SpecialRules{AIPlayers: 1}})
	_, err = e.StartGame(s)
	assert.NoError(t, err)
}

func TestStartGameNotEnoughPacks(t *testing.T) {
	e := newTestEngine(makePack("tiny", 5, 20, 1))
	s := setupGame(t, e, 3, Options{Packs: []string{"tiny"}})

	_, err := e.StartGame(s)
	assert.ErrorIs(t, err, ErrNotEnoughPacks)
}

func TestStartGameOpensFirstRound(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := setupGame(t, e, 3, Options{Packs: []string{"base"}})

	next, err := e.StartGame(s)
	require.NoError(t, err)
	assert.Equal(t, models.GameCreated, s.Game.Status, "input must not change")

	assert.Equal(t, models.GameRunning, next.Game.Status)
	require.Len(t, next.Rounds, 1)
	r := next.Rounds[0]
	assert.Equal(t, models.RoundCreated, r.Status)
	assert.Equal(t, 1, r.Deadlines.Count())
	require.NotNil(t, r.Deadlines.Playing)
	assert.Equal(t, testNow.Add(120*time.Second), *r.Deadlines.Playing)
	assert.Equal(t, next.Players[0].ID, r.JudgeID)

	assert.Empty(t, next.Players[0].Hand, "judge is not dealt")
	assert.Len(t, next.Players[1].Hand, DefaultHandSize)
	assert.Len(t, next.Players[2].Hand, DefaultHandSize)
	assert.Equal(t, r.Prompt, next.Piles.DiscardedPrompts[0], "prompt goes straight to the discard")
	assertConservation(t, next, 10, 100)

	_, err = e.StartGame(next)
	assert.ErrorIs(t, err, ErrGameNotJoinable)
}

func TestPickCardsTwiceFails(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})

	s = pickFirst(t, e, s, 1)
	p := s.Players[1]
	again, err := e.PickCards(s, 0, p.ID, p.Hand[:1])
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Equal(t, s, again, "rejected pick must not change state")
	assert.Len(t, s.Rounds[0].Submissions, 1)
	assertConservation(t, s, 10, 100)
}

func TestPickCardsPreconditions(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})
	judge := s.Players[0]
	player := s.Players[1]

	_, err := e.PickCards(s, 0, judge.ID, []models.ResponseCard{player.Hand[0]})
	assert.ErrorIs(t, err, ErrJudgeCannotSubmit)

	_, err = e.PickCards(s, 0, player.ID, player.Hand[:2])
	assert.ErrorIs(t, err, ErrWrongCardCount)

	_, err = e.PickCards(s, 0, player.ID, []models.ResponseCard{s.Players[2].Hand[0]})
	assert.ErrorIs(t, err, ErrCardsNotInHand)

	_, err = e.PickCards(s, 1, player.ID, player.Hand[:1])
	assert.ErrorIs(t, err, ErrRoundNotFound)

	_, err = e.PickCards(s, 0, uuid.New(), player.Hand[:1])
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	next, err := e.PickCards(s, 0, player.ID, player.Hand[:1])
	require.NoError(t, err)
	assert.Len(t, next.Players[1].Hand, DefaultHandSize-1)
	assert.Len(t, s.Players[1].Hand, DefaultHandSize, "input must not change")
	sub := next.Rounds[0].Submissions[0]
	assert.Equal(t, player.ID, sub.PlayerID)
	assert.Equal(t, player.Hand[:1], sub.Cards)
	assert.False(t, sub.IsRevealed)
	assert.Zero(t, sub.PointsDelta)
	assert.Contains(t, next.Piles.DiscardedResponses, player.Hand[0])
}

func TestPickCardsMultiPick(t *testing.T) {
	e := newTestEngine(makePack("multi", 10, 100, 2))
	s := startedGame(t, e, 3, Options{Packs: []string{"multi"}, Rules: models.SpecialRules{PickExtra: true}})
	p := s.Players[1]
	require.Len(t, p.Hand, DefaultHandSize+1, "pick 2 with pick extra draws one more card")

	_, err := e.PickCards(s, 0, p.ID, []models.ResponseCard{p.Hand[0], p.Hand[0]})
	assert.ErrorIs(t, err, ErrCardsNotInHand, "one hand card cannot satisfy two picks")

	next, err := e.PickCards(s, 0, p.ID, []models.ResponseCard{p.Hand[3], p.Hand[1]})
	require.NoError(t, err)
	assert.Equal(t, []models.ResponseCard{p.Hand[3], p.Hand[1]}, next.Rounds[0].Submissions[0].Cards)
}

func TestAIPlayersSubmitWithFirstHuman(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 2, Options{Packs: []string{"base"}, Rules: models.SpecialRules{AIPlayers: 2}})
	judge := s.Rounds[0].JudgeID

	for _, p := range s.Players {
		if p.IsAI {
			assert.Empty(t, p.Hand, "AI players hold no cards")
			assert.NotEqual(t, p.ID, judge, "AI players never judge")
		}
	}

	human := -1
	for i, p := range s.Players {
		if !p.IsAI && p.ID != judge {
			human = i
		}
	}
	require.NotEqual(t, -1, human)
	s = pickFirst(t, e, s, human)
	assert.Len(t, s.Rounds[0].Submissions, 3)
	assert.True(t, PickComplete(s, 0))
	assertConservation(t, s, 10, 100)
}

func TestPlayRoundWithoutSubmissionsEndsRound(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})

	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	r := s.Rounds[0]
	assert.Equal(t, models.RoundEnded, r.Status)
	for _, p := range models.Phases {
		require.NotNil(t, r.Deadlines.Get(p), p)
		assert.Equal(t, testNow, *r.Deadlines.Get(p))
	}
	phase, _, ok := r.Deadlines.Latest()
	require.True(t, ok)
	assert.Equal(t, models.PhaseBetweenRounds, phase)

	_, err = e.PlayRound(s, 0)
	assert.ErrorIs(t, err, ErrRoundEnded)
}

func TestRoundStatusOrder(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})
	s = pickFirst(t, e, s, 1)

	_, err := e.RevealRound(s, 0)
	assert.ErrorIs(t, err, ErrWrongRoundStatus, "cannot skip played")
	_, err = e.ChooseWinner(s, 0, 0)
	assert.ErrorIs(t, err, ErrWrongRoundStatus)

	s, err = e.PlayRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RoundPlayed, s.Rounds[0].Status)
	require.NotNil(t, s.Rounds[0].Deadlines.Revealing)

	_, err = e.PickCards(s, 0, s.Players[2].ID, s.Players[2].Hand[:1])
	assert.ErrorIs(t, err, ErrWrongRoundStatus)
	_, err = e.RevealSubmission(s, 0, 5)
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	s, err = e.RevealSubmission(s, 0, 0)
	require.NoError(t, err)
	assert.True(t, AllRevealed(s, 0))
	assert.Equal(t, models.RoundPlayed, s.Rounds[0].Status, "revealing one does not advance")

	s, err = e.RevealRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RoundRevealed, s.Rounds[0].Status)
	require.NotNil(t, s.Rounds[0].Deadlines.Judging)

	_, err = e.PlayRound(s, 0)
	assert.ErrorIs(t, err, ErrWrongRoundStatus, "no regression")

	s, err = e.ChooseWinner(s, 0, 0)
	require.NoError(t, err)
	_, err = e.ChooseWinner(s, 0, 0)
	assert.ErrorIs(t, err, ErrWinnerChosen)
	assert.Equal(t, models.RoundRevealed, s.Rounds[0].Status, "choosing does not end the round")

	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RoundEnded, s.Rounds[0].Status)
	_, err = e.EndRound(s, 0)
	assert.ErrorIs(t, err, ErrRoundEnded)
}

func TestNewRoundRequiresEndedRounds(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})

	_, err := e.NewRound(s)
	assert.ErrorIs(t, err, ErrRoundStillOpen)
}

func TestGameWalkthroughToWinner(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}, WinnerPoints: intPtr(2)})
	p0, p1, p2 := s.Players[0].ID, s.Players[1].ID, s.Players[2].ID
	require.Equal(t, p0, s.Rounds[0].JudgeID)

	// Round 1: p2 wins.
	s = pickFirst(t, e, s, 1)
	s = pickFirst(t, e, s, 2)
	require.True(t, PickComplete(s, 0))
	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.RevealRound(s, 0)
	require.NoError(t, err)
	s, err = e.ChooseWinner(s, 0, submissionOf(t, s.Rounds[0], p2))
	require.NoError(t, err)
	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Players[2].Points)
	assert.False(t, WinnerReached(s))
	require.NotNil(t, s.Rounds[0].Deadlines.BetweenRounds, "game goes on")
	assertConservation(t, s, 10, 100)

	// Round 2: judged by p1, p2 wins again.
	s, err = e.NewRound(s)
	require.NoError(t, err)
	require.Len(t, s.Rounds, 2)
	assert.Equal(t, p1, s.Rounds[1].JudgeID)
	assert.Len(t, s.Players[0].Hand, DefaultHandSize, "last judge is dealt back in")
	assert.Len(t, s.Players[2].Hand, DefaultHandSize, "hands are refilled")

	s = pickFirst(t, e, s, 0)
	s = pickFirst(t, e, s, 2)
	s, err = e.PlayRound(s, 1)
	require.NoError(t, err)
	s, err = e.RevealRound(s, 1)
	require.NoError(t, err)
	s, err = e.ChooseWinner(s, 1, submissionOf(t, s.Rounds[1], p2))
	require.NoError(t, err)
	s, err = e.EndRound(s, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Players[2].Points)
	assert.True(t, WinnerReached(s))
	assert.Nil(t, s.Rounds[1].Deadlines.BetweenRounds, "no next round once a player has won")

	s, err = e.EndGame(s)
	require.NoError(t, err)
	assert.Equal(t, models.GameEnded, s.Game.Status)
	_, err = e.EndGame(s)
	assert.ErrorIs(t, err, ErrGameEnded)
	assertConservation(t, s, 10, 100)
}

func TestEndRoundSkipsInactivePlayers(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})
	s = pickFirst(t, e, s, 1)
	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.RevealRound(s, 0)
	require.NoError(t, err)
	s, err = e.ChooseWinner(s, 0, 0)
	require.NoError(t, err)
	s, err = e.LeavePlayer(s, s.Players[1].ID, "")
	require.NoError(t, err)

	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	assert.Zero(t, s.Players[1].Points)
}

func TestEndGameClosesOpenRound(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})

	s, err := e.EndGame(s)
	require.NoError(t, err)
	assert.Equal(t, models.RoundEnded, s.Rounds[0].Status)

	_, err = e.PickCards(s, 0, s.Players[1].ID, s.Players[1].Hand[:1])
	assert.ErrorIs(t, err, ErrGameNotRunning)
}

func TestDiscardCards(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	opts := Options{Packs: []string{"base"}, Rules: models.SpecialRules{Discarding: models.DiscardRule{Enabled: true, Penalty: 1}}}
	s := startedGame(t, e, 3, opts)
	p := s.Players[1]

	s, err := e.DiscardCards(s, 0, p.ID, p.Hand[:3])
	require.NoError(t, err)
	assert.Len(t, s.Players[1].Hand, DefaultHandSize, "hand is refilled")
	for _, c := range p.Hand[:3] {
		assert.NotContains(t, s.Players[1].Hand, c)
	}
	require.Len(t, s.Rounds[0].Discard, 1)
	assert.Equal(t, -1, s.Rounds[0].Discard[0].PointsDelta)
	assertConservation(t, s, 10, 100)

	_, err = e.DiscardCards(s, 0, s.Players[0].ID, s.Players[1].Hand[:1])
	assert.ErrorIs(t, err, ErrJudgeCannotSubmit)

	s = pickFirst(t, e, s, 2)
	s, err = e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, -1, s.Players[1].Points, "penalty is booked at round end")
	assert.Zero(t, s.Players[2].Points)

	off := startedGame(t, e, 3, Options{Packs: []string{"base"}})
	_, err = e.DiscardCards(off, 0, off.Players[1].ID, off.Players[1].Hand[:1])
	assert.ErrorIs(t, err, ErrDiscardDisabled)
}

func TestDiscardPrompt(t *testing.T) {
	pack := makePack("mixed", 0, 100, 1)
	pack.Prompts = []models.PackPrompt{
		{Text: "two", Pick: 2},
		{Text: "three", Pick: 3},
		{Text: "one", Pick: 1},
	}
	e := newTestEngine(pack)
	opts := Options{
		Packs: []string{"mixed"},
		Rules: models.SpecialRules{PickExtra: true, Discarding: models.DiscardRule{Enabled: true}},
	}
	s := startedGame(t, e, 3, opts)
	judge := s.Rounds[0].JudgeID
	require.Equal(t, "two", s.Rounds[0].Prompt.Value)
	require.Len(t, s.Players[1].Hand, DefaultHandSize+1)

	_, err := e.DiscardPrompt(s, 0, s.Players[1].ID)
	assert.ErrorIs(t, err, ErrNotJudge)

	s, err = e.DiscardPrompt(s, 0, judge)
	require.NoError(t, err)
	assert.Equal(t, "three", s.Rounds[0].Prompt.Value)
	assert.Len(t, s.Players[1].Hand, DefaultHandSize+2, "higher pick needs more cards")

	s, err = e.DiscardPrompt(s, 0, judge)
	require.NoError(t, err)
	assert.Equal(t, "one", s.Rounds[0].Prompt.Value)
	assert.Len(t, s.Players[1].Hand, DefaultHandSize+2, "surplus cards are kept")

	// The pile is empty now: the reshuffle must not hand back the prompt in play.
	s, err = e.DiscardPrompt(s, 0, judge)
	require.NoError(t, err)
	assert.NotEqual(t, "one", s.Rounds[0].Prompt.Value)
	assertConservation(t, s, 3, 100)

	s = pickFirst(t, e, s, 1)
	_, err = e.DiscardPrompt(s, 0, judge)
	assert.ErrorIs(t, err, ErrPromptHasSubmissions)
}

func TestNewRoundReshufflesPrompts(t *testing.T) {
	e := newTestEngine(makePack("small", 1, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"small"}})
	require.Empty(t, s.Piles.Prompts)

	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.NewRound(s)
	require.NoError(t, err)
	assert.Equal(t, "small prompt 0", s.Rounds[1].Prompt.Value)
	assertConservation(t, s, 1, 100)
}

func TestRefillReshufflesResponses(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 40, 1))
	opts := Options{Packs: []string{"base"}, Rules: models.SpecialRules{Discarding: models.DiscardRule{Enabled: true}}}
	s := startedGame(t, e, 3, opts)

	// Round 0 ends with two cards on the discard pile.
	s = pickFirst(t, e, s, 1)
	s = pickFirst(t, e, s, 2)
	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	oldCards := append([]models.ResponseCard(nil), s.Piles.DiscardedResponses...)
	require.Len(t, oldCards, 2)

	s, err = e.NewRound(s)
	require.NoError(t, err)
	require.Equal(t, s.Players[1].ID, s.Rounds[1].JudgeID)
	require.Len(t, s.Piles.Responses, 9)

	s = pickFirst(t, e, s, 0)
	current := s.Rounds[1].Submissions[0].Cards
	p2 := s.Players[2]

	s, err = e.DiscardCards(s, 1, p2.ID, s.Players[2].Hand[:9])
	require.NoError(t, err)
	require.Empty(t, s.Piles.Responses)
	assert.Len(t, s.Players[2].Hand, DefaultHandSize)

	// Only round 0's cards may come back.
	s, err = e.DiscardCards(s, 1, p2.ID, s.Players[2].Hand[:5])
	require.NoError(t, err)
	assert.Len(t, s.Players[2].Hand, DefaultHandSize-5+len(oldCards))
	for _, c := range oldCards {
		assert.Contains(t, s.Players[2].Hand, c)
	}
	for _, c := range current {
		assert.Contains(t, s.Piles.DiscardedResponses, c, "open round cards stay on the discard")
	}
	assertConservation(t, s, 10, 40)
}

func TestJoinRunningGameTopsUpHand(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})

	s, newcomer, err := e.AddPlayer(s, "late")
	require.NoError(t, err)
	s, err = e.JoinPlayer(s, newcomer.ID, "conn-late")
	require.NoError(t, err)
	idx := s.Player(newcomer.ID)
	assert.True(t, s.Players[idx].IsActive)
	assert.Len(t, s.Players[idx].Hand, DefaultHandSize)
	assertConservation(t, s, 10, 100)

	s, err = e.LeavePlayer(s, newcomer.ID, "other-conn")
	require.NoError(t, err)
	assert.True(t, s.Players[idx].IsActive, "stale disconnect does not deactivate")

	s, err = e.LeavePlayer(s, newcomer.ID, "conn-late")
	require.NoError(t, err)
	assert.False(t, s.Players[idx].IsActive)
	assert.Empty(t, s.Players[idx].ConnID)

	_, err = e.JoinPlayer(s, uuid.New(), "x")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestDeactivatePlayersSkipsAI(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := setupGame(t, e, 2, Options{Packs: []string{"base"}, Rules: models.SpecialRules{AIPlayers: 1}})
	ids := []uuid.UUID{s.Players[0].ID, s.Players[1].ID}

	s, err := e.DeactivatePlayers(s, ids)
	require.NoError(t, err)
	assert.False(t, s.Players[0].IsActive)
	assert.True(t, s.Players[1].IsActive, "AI stays active")
}

func TestStripRound(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}})
	s = pickFirst(t, e, s, 1)
	s = pickFirst(t, e, s, 2)

	require.False(t, s.Rounds[0].Submissions[0].Timestamp.IsZero())
	open := StripRound(s.Rounds[0])
	for _, sub := range open.Submissions {
		assert.Equal(t, uuid.Nil, sub.PlayerID)
		assert.True(t, sub.Timestamp.IsZero(), "submission times would give away the author")
		for _, c := range sub.Cards {
			assert.Equal(t, models.CardRedacted, c.Type)
			assert.Empty(t, c.Value)
		}
	}
	assert.NotEqual(t, uuid.Nil, s.Rounds[0].Submissions[0].PlayerID, "stripping must not touch the source")

	s, err := e.PlayRound(s, 0)
	require.NoError(t, err)
	s, err = e.RevealSubmission(s, 0, 1)
	require.NoError(t, err)
	played := StripRound(s.Rounds[0])
	assert.Equal(t, models.CardRedacted, played.Submissions[0].Cards[0].Type)
	assert.Equal(t, s.Rounds[0].Submissions[1].Cards, played.Submissions[1].Cards)
	assert.Equal(t, uuid.Nil, played.Submissions[1].PlayerID, "authors stay hidden until the round ends")
	assert.True(t, played.Submissions[1].Timestamp.IsZero())

	s, err = e.EndRound(s, 0)
	require.NoError(t, err)
	assert.Equal(t, s.Rounds[0], StripRound(s.Rounds[0]))
}

func TestStripGameState(t *testing.T) {
	e := newTestEngine(makePack("base", 10, 100, 1))
	s := startedGame(t, e, 3, Options{Packs: []string{"base"}, PasswordHash: "secret-hash"})

	v := StripGameState(s)
	assert.Empty(t, v.Game.Password)
	assert.True(t, v.Game.HasPassword)
	require.Len(t, v.Players, 3)
	assert.Equal(t, DefaultHandSize, v.Players[1].HandSize)
	assert.Equal(t, "secret-hash", s.Game.Password)

	me := StripPlayer(s.Players[1])
	assert.Empty(t, me.ConnID)
	assert.Len(t, me.Hand, DefaultHandSize)
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("wrapped: %w", ErrNotJudge))
	require.True(t, ok)
	assert.Equal(t, KindUnauthorized, kind)

	kind, ok = KindOf(ErrRoundNotFound)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, kind)

	_, ok = KindOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}
