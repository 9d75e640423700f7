package domain

// PlayerView is a player as seen by one viewer. Hand is only filled in for
// the viewer's own seat; everyone else sees the card count.
type PlayerView struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	Seat        int    `json:"seat"`
	Hand        []Card `json:"hand,omitempty"`
	HandCount   int    `json:"hand_count"`
	HandsWon    int    `json:"hands_won"`
	Ready       bool   `json:"ready"`
	TeamID      string `json:"team_id,omitempty"`
}

// View is the client-facing projection of a Snapshot. It carries every public
// field of the room plus the viewer's own hand, never the undealt remainder.
type View struct {
	Version         int64                 `json:"version"`
	Phase           Phase                 `json:"phase"`
	Players         map[string]PlayerView `json:"players"`
	SeatOrder       []string              `json:"seat_order"`
	TrumpSuit       Suit                  `json:"trump_suit,omitempty"`
	TrumpSelectorID string                `json:"trump_selector_id,omitempty"`
	Trick           []PlayedCard          `json:"trick"`
	LeadSuit        Suit                  `json:"lead_suit,omitempty"`
	TurnIndex       int                   `json:"turn_index"`
	CurrentPlayerID string                `json:"current_player_id,omitempty"`
	HandNumber      int                   `json:"hand_number"`
	GameCount       int                   `json:"game_count"`
	Arrangement     Arrangement           `json:"arrangement,omitempty"`
	Teams           *Teams                `json:"teams,omitempty"`
	Winner          *Outcome              `json:"winner,omitempty"`
	LastTrick       *ResolvedTrick        `json:"last_trick,omitempty"`
}

// ViewFor projects s for viewerID. An empty or unknown viewer sees no hands.
func ViewFor(s *Snapshot, viewerID string) View {
	c := s.Clone()
	seating := NewSeating(c.Players)

	v := View{
		Version:         c.Version,
		Phase:           c.Phase,
		Players:         make(map[string]PlayerView, len(c.Players)),
		SeatOrder:       seating.Order(),
		TrumpSuit:       c.TrumpSuit,
		TrumpSelectorID: c.TrumpSelectorID,
		Trick:           c.Trick,
		LeadSuit:        c.LeadSuit,
		TurnIndex:       c.TurnIndex,
		HandNumber:      c.HandNumber,
		GameCount:       c.GameCount,
		Arrangement:     c.Arrangement,
		Teams:           c.Teams,
		Winner:          c.Winner,
		LastTrick:       c.LastTrick,
	}
	if c.Phase == PhasePlaying {
		v.CurrentPlayerID = CurrentPlayerID(c)
	}

	for id, p := range c.Players {
		pv := PlayerView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			AvatarRef:   p.AvatarRef,
			Seat:        seating.Index(id),
			HandCount:   len(p.Hand),
			HandsWon:    p.HandsWon,
			Ready:       p.Ready,
			TeamID:      p.TeamID,
		}
		if id == viewerID {
			pv.Hand = p.Hand
			SortHand(pv.Hand)
		}
		v.Players[id] = pv
	}
	return v
}
