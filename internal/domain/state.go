package domain

// Phase represents the lifecycle stage of a Court Piece room.
type Phase string

const (
	// PhaseWaiting is the pre-game state where players join and ready up.
	PhaseWaiting Phase = "waiting"
	// PhaseTrumpSelection is the state after the first deal, waiting for the selector.
	PhaseTrumpSelection Phase = "trump_selection"
	// PhasePlaying is the active trick-taking state.
	PhasePlaying Phase = "playing"
	// PhaseGameComplete is the state after all thirteen tricks are resolved.
	PhaseGameComplete Phase = "game_complete"
)

// Player holds state for a participant in the room.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Hand        []Card `json:"hand"`
	HandsWon    int    `json:"hands_won"`
	Captured    []Card `json:"captured,omitempty"` // cards of the tricks this player won
	Ready       bool   `json:"ready"`
	TeamID      string `json:"team_id,omitempty"`
	JoinedAt    int64  `json:"joined_at"` // unix millis
}

// PlayedCard is one entry of the current trick.
type PlayedCard struct {
	Card     Card   `json:"card"`
	PlayerID string `json:"player_id"`
}

// Team is one partnership in team mode.
type Team struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
}

// Teams holds both partnerships derived from a full seat arrangement.
type Teams struct {
	Team1 Team `json:"team1"`
	Team2 Team `json:"team2"`
}

// ResolvedTrick summarizes the most recently resolved trick.
type ResolvedTrick struct {
	Cards    []PlayedCard `json:"cards"`
	WinnerID string       `json:"winner_id"`
	Number   int          `json:"number"` // 1..13
}

// Snapshot is the single source of truth for one room.
type Snapshot struct {
	Version         int64              `json:"version"`
	Phase           Phase              `json:"phase"`
	Players         map[string]*Player `json:"players"`
	TrumpSuit       Suit               `json:"trump_suit,omitempty"`
	TrumpSelectorID string             `json:"trump_selector_id,omitempty"`
	Trick           []PlayedCard       `json:"trick"`
	LeadSuit        Suit               `json:"lead_suit,omitempty"`
	TurnIndex       int                `json:"turn_index"`
	HandNumber      int                `json:"hand_number"`
	GameCount       int                `json:"game_count"`
	Arrangement     Arrangement        `json:"arrangement,omitempty"`
	Teams           *Teams             `json:"teams,omitempty"`
	Winner          *Outcome           `json:"winner,omitempty"`
	LastTrick       *ResolvedTrick     `json:"last_trick,omitempty"`

	// Deck holds the undealt remainder between the two deals.
	Deck []Card `json:"deck,omitempty"`
}

// NewSnapshot returns an empty waiting-room snapshot at version zero.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Phase:   PhaseWaiting,
		Players: map[string]*Player{},
		Trick:   []PlayedCard{},
	}
}

// Clone returns a deep copy so transitions never mutate a published snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Players = make(map[string]*Player, len(s.Players))
	for id, p := range s.Players {
		cp := *p
		cp.Hand = cloneCards(p.Hand)
		cp.Captured = cloneCards(p.Captured)
		out.Players[id] = &cp
	}
	out.Trick = append(make([]PlayedCard, 0, TrickSize), s.Trick...)
	out.Deck = cloneCards(s.Deck)
	if s.Arrangement != nil {
		out.Arrangement = make(Arrangement, len(s.Arrangement))
		for pos, id := range s.Arrangement {
			out.Arrangement[pos] = id
		}
	}
	if s.Teams != nil {
		teams := Teams{
			Team1: Team{Name: s.Teams.Team1.Name, MemberIDs: append([]string(nil), s.Teams.Team1.MemberIDs...)},
			Team2: Team{Name: s.Teams.Team2.Name, MemberIDs: append([]string(nil), s.Teams.Team2.MemberIDs...)},
		}
		out.Teams = &teams
	}
	if s.Winner != nil {
		w := s.Winner.clone()
		out.Winner = &w
	}
	if s.LastTrick != nil {
		lt := *s.LastTrick
		lt.Cards = append([]PlayedCard(nil), s.LastTrick.Cards...)
		out.LastTrick = &lt
	}
	return &out
}

// TrickFull reports whether every seat has played to the current trick.
func (s *Snapshot) TrickFull() bool {
	return len(s.Trick) >= TrickSize
}

func cloneCards(cards []Card) []Card {
	if cards == nil {
		return nil
	}
	return append(make([]Card, 0, len(cards)), cards...)
}
