package game

import "errors"

// RejectionKind classifies why a transition was refused.
type RejectionKind string

const (
	KindPrecondition RejectionKind = "precondition"
	KindNotFound     RejectionKind = "not_found"
	KindUnauthorized RejectionKind = "unauthorized"
)

// Rejection is returned by every engine operation whose preconditions do not hold.
// The input state is never modified when a Rejection is returned.
type Rejection struct {
	Kind    RejectionKind
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

func precondition(msg string) *Rejection { return &Rejection{Kind: KindPrecondition, Message: msg} }
func notFound(msg string) *Rejection     { return &Rejection{Kind: KindNotFound, Message: msg} }
func unauthorized(msg string) *Rejection { return &Rejection{Kind: KindUnauthorized, Message: msg} }

var (
	ErrGameNotJoinable      = precondition("game has wrong status")
	ErrGameNotRunning       = precondition("only running games can be updated")
	ErrGameEnded            = precondition("game is already ended")
	ErrNotEnoughPlayers     = precondition("there are not enough players")
	ErrNotEnoughPacks       = precondition("there are not enough packs")
	ErrRoundStillOpen       = precondition("the previous round has not ended")
	ErrNotLastRound         = precondition("only the last round can be updated")
	ErrWrongRoundStatus     = precondition("round has wrong status")
	ErrRoundEnded           = precondition("round already ended")
	ErrJudgeCannotSubmit    = precondition("the judge cannot submit cards")
	ErrAlreadySubmitted     = precondition("cards were already submitted this round")
	ErrCardsNotInHand       = precondition("cards are not in hand")
	ErrWrongCardCount       = precondition("wrong number of cards")
	ErrDiscardDisabled      = precondition("discarding is not allowed in this game")
	ErrPromptHasSubmissions = precondition("the prompt can only be discarded before any submission")
	ErrNicknameTaken        = precondition("nickname is already taken")
	ErrMissingNickname      = precondition("no nickname given")
	ErrInvalidOptions       = precondition("invalid game options")
	ErrInactivePlayer       = precondition("player is not active")

	ErrUnknownPack        = notFound("invalid pack")
	ErrPlayerNotFound     = notFound("player not found")
	ErrRoundNotFound      = notFound("invalid round")
	ErrSubmissionNotFound = notFound("invalid submission")

	ErrNotHost  = unauthorized("only the host can do this")
	ErrNotJudge = unauthorized("only the judge can do this")
)

// KindOf reports the rejection kind of err, if err is (or wraps) a Rejection.
func KindOf(err error) (RejectionKind, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r.Kind, true
	}
	return "", false
}
