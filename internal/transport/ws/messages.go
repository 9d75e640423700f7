package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"courtpiece/internal/app"
	"courtpiece/internal/domain"
)

// Client message types.
const (
	TypeReady       = "ready"
	TypeArrange     = "arrange_seats"
	TypeStart       = "start_game"
	TypeTrump       = "select_trump"
	TypePlay        = "play_card"
	TypeNewGame     = "new_game"
	TypeEndGame     = "end_game"
	TypeLeave       = "leave"
	TypeGetSnapshot = "snapshot"
)

// Server message types.
const (
	TypeSnapshotOut = "snapshot"
	TypeEventOut    = "event"
	TypeAckOut      = "ok"
	TypeErrorOut    = "error"
)

// Error codes carried in ErrPayload.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeInvalid     = "INVALID_COMMAND"
	CodeConflict    = "STALE_VERSION"
	CodeUnknownType = "UNKNOWN_TYPE"
	CodeInternal    = "INTERNAL"
)

// InMsg is the envelope of every client frame.
type InMsg struct {
	T     string          `json:"t"`
	ReqID string          `json:"reqId,omitempty"`
	P     json.RawMessage `json:"p,omitempty"`
}

// OutMsg is the envelope of every server frame.
type OutMsg struct {
	T     string      `json:"t"`
	ReqID string      `json:"reqId,omitempty"`
	P     interface{} `json:"p,omitempty"`
}

type ErrPayload struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type AckPayload struct {
	Version int64 `json:"version"`
}

// CommandPayload is the body of a command frame. Version is the snapshot
// version the client computed the command against.
type CommandPayload struct {
	Version          int64              `json:"version"`
	Ready            *bool              `json:"ready,omitempty"`
	Arrangement      domain.Arrangement `json:"arrangement,omitempty"`
	SelectorOverride string             `json:"selector_override,omitempty"`
	Suit             domain.Suit        `json:"suit,omitempty"`
	Card             *domain.Card       `json:"card,omitempty"`
}

var (
	errMalformed   = errors.New("malformed message")
	errUnknownType = errors.New("unknown message type")
)

// decodeCommand maps a client frame to an app command for userID.
func decodeCommand(in InMsg, userID string) (int64, app.Command, error) {
	var p CommandPayload
	if len(in.P) > 0 {
		if err := json.Unmarshal(in.P, &p); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
	}

	switch in.T {
	case TypeReady:
		ready := true
		if p.Ready != nil {
			ready = *p.Ready
		}
		return p.Version, app.ReadyCommand{PlayerID: userID, Ready: ready}, nil
	case TypeArrange:
		return p.Version, app.ArrangeSeatsCommand{Arrangement: p.Arrangement}, nil
	case TypeStart:
		return p.Version, app.StartGameCommand{ActorID: userID, Options: app.StartOptions{SelectorOverride: p.SelectorOverride}}, nil
	case TypeTrump:
		return p.Version, app.SelectTrumpCommand{ActorID: userID, Suit: p.Suit}, nil
	case TypePlay:
		if p.Card == nil {
			return 0, nil, fmt.Errorf("%w: card is required", errMalformed)
		}
		return p.Version, app.PlayCardCommand{ActorID: userID, Card: *p.Card}, nil
	case TypeNewGame:
		return p.Version, app.NewGameCommand{}, nil
	case TypeEndGame:
		return p.Version, app.EndGameCommand{}, nil
	case TypeLeave:
		return p.Version, app.LeaveCommand{PlayerID: userID}, nil
	default:
		return 0, nil, fmt.Errorf("%w: %q", errUnknownType, in.T)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errMalformed):
		return CodeBadRequest
	case errors.Is(err, errUnknownType):
		return CodeUnknownType
	case errors.Is(err, app.ErrValidation):
		return CodeInvalid
	case errors.Is(err, app.ErrConflict):
		return CodeConflict
	default:
		return CodeInternal
	}
}
