package app

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation classifies commands rejected before any mutation.
	ErrValidation = errors.New("invalid command")
	// ErrConflict reports a command computed against a stale snapshot version.
	ErrConflict = errors.New("stale snapshot version")
)

var (
	ErrWrongPhase         = validationError("command not allowed in current phase")
	ErrNotYourTurn        = validationError("not your turn")
	ErrIllegalCard        = validationError("card must follow the lead suit")
	ErrCardNotInHand      = validationError("card not in hand")
	ErrInvalidCard        = validationError("invalid card")
	ErrNotSelector        = validationError("only the trump selector may choose trump")
	ErrInvalidSuit        = validationError("invalid trump suit")
	ErrPlayerCount        = validationError("exactly 4 players are required to start")
	ErrNotAllReady        = validationError("all players must be ready")
	ErrUnknownPlayer      = validationError("player not found")
	ErrInvalidPlayer      = validationError("player id is required")
	ErrRoomFull           = validationError("room is full")
	ErrTrickPending       = validationError("trick must be resolved before the next play")
	ErrInvalidArrangement = validationError("invalid seat arrangement")
)

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
