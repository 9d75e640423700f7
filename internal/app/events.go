package app

import "courtpiece/internal/domain"

// EventKind identifies emitted domain events for transport dispatch.
type EventKind string

const (
	EventPlayerJoined  EventKind = "player_joined"
	EventPlayerLeft    EventKind = "player_left"
	EventReadyChanged  EventKind = "ready_changed"
	EventSeatsArranged EventKind = "seats_arranged"
	EventGameStarted   EventKind = "game_started"
	EventHandDealt     EventKind = "hand_dealt"
	EventTrumpSelected EventKind = "trump_selected"
	EventCardPlayed    EventKind = "card_played"
	EventTrickResolved EventKind = "trick_resolved"
	EventGameCompleted EventKind = "game_completed"
	EventGameReset     EventKind = "game_reset"
	EventGameEnded     EventKind = "game_ended"
)

// Event is a domain/app event with optional targeted recipients.
type Event struct {
	Kind       EventKind `json:"kind"`
	Payload    any       `json:"payload,omitempty"`
	Recipients []string  `json:"-"` // player IDs; empty means broadcast
}

type PlayerJoinedPayload struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Rejoined    bool   `json:"rejoined"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
}

type ReadyChangedPayload struct {
	PlayerID string `json:"player_id"`
	Ready    bool   `json:"ready"`
}

type SeatsArrangedPayload struct {
	Arrangement domain.Arrangement `json:"arrangement"`
	TeamMode    bool               `json:"team_mode"`
}

type GameStartedPayload struct {
	GameCount       int    `json:"game_count"`
	TrumpSelectorID string `json:"trump_selector_id"`
	Overridden      bool   `json:"overridden"`
}

type HandDealtPayload struct {
	PlayerID string        `json:"player_id"`
	Hand     []domain.Card `json:"hand"`
}

type TrumpSelectedPayload struct {
	PlayerID  string      `json:"player_id"`
	TrumpSuit domain.Suit `json:"trump_suit"`
}

type CardPlayedPayload struct {
	PlayerID      string      `json:"player_id"`
	Card          domain.Card `json:"card"`
	NextTurnIndex int         `json:"next_turn_index"`
	TrickComplete bool        `json:"trick_complete"`
}

type TrickResolvedPayload struct {
	WinnerID      string      `json:"winner_id"`
	WinningCard   domain.Card `json:"winning_card"`
	HandNumber    int         `json:"hand_number"`
	NextTurnIndex int         `json:"next_turn_index"`
}

type GameCompletedPayload struct {
	Outcome domain.Outcome `json:"outcome"`
}

type GameEndedPayload struct {
	GameCount int `json:"game_count"`
}
