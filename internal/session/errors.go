package session

import (
	"context"
	"errors"

	"github.com/jason-s-yu/promptparty/internal/game"
	"github.com/jason-s-yu/promptparty/internal/store"
)

var (
	ErrPresenceTaken = errors.New("player is already connected")
	ErrWrongPassword = errors.New("wrong game password")
	ErrUnknownEvent  = errors.New("unknown event")
)

// ErrorClass tells the transport how to surface a failed operation.
type ErrorClass string

const (
	ClassPrecondition ErrorClass = "precondition"
	ClassNotFound     ErrorClass = "not_found"
	ClassUnauthorized ErrorClass = "unauthorized"
	ClassTransient    ErrorClass = "transient"
	ClassInternal     ErrorClass = "internal"
)

// Classify maps an error returned by the controller to its class.
func Classify(err error) ErrorClass {
	if kind, ok := game.KindOf(err); ok {
		switch kind {
		case game.KindNotFound:
			return ClassNotFound
		case game.KindUnauthorized:
			return ClassUnauthorized
		default:
			return ClassPrecondition
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ClassNotFound
	case errors.Is(err, store.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	case errors.Is(err, ErrPresenceTaken), errors.Is(err, ErrWrongPassword):
		return ClassUnauthorized
	case errors.Is(err, ErrUnknownEvent):
		return ClassPrecondition
	}
	return ClassInternal
}
