package app

import "courtpiece/internal/domain"

// Command is a state-changing request applied by a Room against the latest
// snapshot. Commands are values; the Service does the work.
type Command interface {
	// Name identifies the command in logs and transport payloads.
	Name() string
	apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error)
}

// JoinCommand seats a player or refreshes their profile.
type JoinCommand struct {
	Profile PlayerProfile
}

func (JoinCommand) Name() string { return "join" }

func (c JoinCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.Join(cur, c.Profile)
}

// LeaveCommand removes a player from the waiting room.
type LeaveCommand struct {
	PlayerID string
}

func (LeaveCommand) Name() string { return "leave" }

func (c LeaveCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.Leave(cur, c.PlayerID)
}

// ReadyCommand sets a player's ready flag.
type ReadyCommand struct {
	PlayerID string
	Ready    bool
}

func (ReadyCommand) Name() string { return "set_ready" }

func (c ReadyCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.SetReady(cur, c.PlayerID, c.Ready)
}

// ArrangeSeatsCommand assigns table positions.
type ArrangeSeatsCommand struct {
	Arrangement domain.Arrangement
}

func (ArrangeSeatsCommand) Name() string { return "arrange_seats" }

func (c ArrangeSeatsCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.ArrangeSeats(cur, c.Arrangement)
}

// StartGameCommand deals the first cards and picks the trump selector.
type StartGameCommand struct {
	ActorID string
	Options StartOptions
}

func (StartGameCommand) Name() string { return "start_game" }

func (c StartGameCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.StartGame(cur, c.ActorID, c.Options)
}

// SelectTrumpCommand fixes the trump suit.
type SelectTrumpCommand struct {
	ActorID string
	Suit    domain.Suit
}

func (SelectTrumpCommand) Name() string { return "select_trump" }

func (c SelectTrumpCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.SelectTrump(cur, c.ActorID, c.Suit)
}

// PlayCardCommand plays one card to the current trick.
type PlayCardCommand struct {
	ActorID string
	Card    domain.Card
}

func (PlayCardCommand) Name() string { return "play_card" }

func (c PlayCardCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.PlayCard(cur, c.ActorID, c.Card)
}

// ResolveTrickCommand resolves a full trick; a no-op otherwise.
type ResolveTrickCommand struct{}

func (ResolveTrickCommand) Name() string { return "resolve_trick" }

func (ResolveTrickCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.ResolveTrick(cur)
}

// NewGameCommand returns a completed table to the waiting room.
type NewGameCommand struct{}

func (NewGameCommand) Name() string { return "request_new_game" }

func (NewGameCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.RequestNewGame(cur)
}

// EndGameCommand clears the table from any phase.
type EndGameCommand struct{}

func (EndGameCommand) Name() string { return "end_game" }

func (EndGameCommand) apply(svc *Service, cur *domain.Snapshot) (*domain.Snapshot, []Event, error) {
	return svc.EndGame(cur)
}
