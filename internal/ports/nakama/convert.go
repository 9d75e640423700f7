package nakama

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"courtpiece/internal/app"
	"courtpiece/internal/domain"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CommandRequest is the JSON body of every client command. Version is the
// snapshot version the client computed the command against.
type CommandRequest struct {
	Version          int64              `json:"version"`
	Ready            *bool              `json:"ready,omitempty"`
	Arrangement      domain.Arrangement `json:"arrangement,omitempty"`
	SelectorOverride string             `json:"selector_override,omitempty"`
	Suit             domain.Suit        `json:"suit,omitempty"`
	Card             *domain.Card       `json:"card,omitempty"`
}

// ErrorMessage is sent on OpError.
type ErrorMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Op      int64  `json:"op"`
}

var errMalformed = errors.New("malformed request")

// decodeCommand maps an opcode and payload to an app command for userID.
func decodeCommand(op int64, data []byte, userID string) (int64, app.Command, error) {
	var req CommandRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
	}

	switch op {
	case OpSetReady:
		ready := true
		if req.Ready != nil {
			ready = *req.Ready
		}
		return req.Version, app.ReadyCommand{PlayerID: userID, Ready: ready}, nil
	case OpArrangeSeats:
		return req.Version, app.ArrangeSeatsCommand{Arrangement: req.Arrangement}, nil
	case OpStartGame:
		return req.Version, app.StartGameCommand{ActorID: userID, Options: app.StartOptions{SelectorOverride: req.SelectorOverride}}, nil
	case OpSelectTrump:
		return req.Version, app.SelectTrumpCommand{ActorID: userID, Suit: req.Suit}, nil
	case OpPlayCard:
		if req.Card == nil {
			return 0, nil, fmt.Errorf("%w: card is required", errMalformed)
		}
		return req.Version, app.PlayCardCommand{ActorID: userID, Card: *req.Card}, nil
	case OpRequestNewGame:
		return req.Version, app.NewGameCommand{}, nil
	case OpEndGame:
		return req.Version, app.EndGameCommand{}, nil
	default:
		return 0, nil, fmt.Errorf("%w: unknown opcode %d", errMalformed, op)
	}
}

// errorCode classifies command errors for clients.
func errorCode(err error) int {
	switch {
	case errors.Is(err, errMalformed), errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// viewToStruct converts a view to a protobuf Struct via its JSON form.
func viewToStruct(v domain.View) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// encodeView serializes a viewer's snapshot for OpSnapshot.
func encodeView(s *domain.Snapshot, viewerID string) ([]byte, error) {
	st, err := viewToStruct(domain.ViewFor(s, viewerID))
	if err != nil {
		return nil, fmt.Errorf("convert view: %w", err)
	}
	return proto.Marshal(st)
}
