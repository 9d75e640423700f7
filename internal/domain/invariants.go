package domain

import (
	"errors"
	"fmt"
)

// ErrInvariant marks a snapshot that breaks a structural rule of the game.
// It signals a defect in dealing or turn logic, never a user mistake.
var ErrInvariant = errors.New("invariant violation")

// CheckInvariants verifies the snapshot's structural rules and returns the
// first violation found, wrapped in ErrInvariant.
func CheckInvariants(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvariant)
	}

	if s.Phase != PhaseWaiting && len(s.Players) != PlayerCount {
		return fmt.Errorf("%w: %d players in phase %s", ErrInvariant, len(s.Players), s.Phase)
	}
	if len(s.Players) > PlayerCount {
		return fmt.Errorf("%w: %d players exceeds table size", ErrInvariant, len(s.Players))
	}
	if len(s.Trick) > TrickSize {
		return fmt.Errorf("%w: trick holds %d cards", ErrInvariant, len(s.Trick))
	}
	if s.HandNumber < 0 || s.HandNumber > TricksPerGame {
		return fmt.Errorf("%w: hand number %d out of range", ErrInvariant, s.HandNumber)
	}
	if s.HandNumber == TricksPerGame && s.Phase != PhaseGameComplete {
		return fmt.Errorf("%w: %d tricks played but phase is %s", ErrInvariant, s.HandNumber, s.Phase)
	}
	if s.TurnIndex < 0 || s.TurnIndex >= PlayerCount {
		return fmt.Errorf("%w: turn index %d out of range", ErrInvariant, s.TurnIndex)
	}

	for id, p := range s.Players {
		if p.HandsWon < 0 {
			return fmt.Errorf("%w: player %s has %d hands won", ErrInvariant, id, p.HandsWon)
		}
		if len(p.Captured) != p.HandsWon*TrickSize {
			return fmt.Errorf("%w: player %s captured %d cards for %d tricks", ErrInvariant, id, len(p.Captured), p.HandsWon)
		}
	}

	if err := checkReferences(s); err != nil {
		return err
	}
	if s.Phase != PhaseWaiting {
		if err := CheckConservation(s); err != nil {
			return err
		}
	}
	return nil
}

// CheckConservation verifies that hands, won tricks, the current trick and
// the remainder together form exactly one full deck.
func CheckConservation(s *Snapshot) error {
	cards := CardsInPlay(s)
	if len(cards) != DeckSize {
		return fmt.Errorf("%w: %d cards accounted for, want %d", ErrInvariant, len(cards), DeckSize)
	}
	seen := make(map[Card]bool, DeckSize)
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: invalid card %+v", ErrInvariant, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate card %s", ErrInvariant, c)
		}
		seen[c] = true
	}
	return nil
}

func checkReferences(s *Snapshot) error {
	known := func(id string) bool {
		_, ok := s.Players[id]
		return ok
	}

	for _, pc := range s.Trick {
		if !known(pc.PlayerID) {
			return fmt.Errorf("%w: trick entry from unknown player %s", ErrInvariant, pc.PlayerID)
		}
	}
	if s.TrumpSelectorID != "" && !known(s.TrumpSelectorID) {
		return fmt.Errorf("%w: unknown trump selector %s", ErrInvariant, s.TrumpSelectorID)
	}
	if s.Teams != nil {
		for _, t := range []Team{s.Teams.Team1, s.Teams.Team2} {
			for _, id := range t.MemberIDs {
				if !known(id) {
					return fmt.Errorf("%w: team %s references unknown player %s", ErrInvariant, t.Name, id)
				}
			}
		}
	}
	for pos, id := range s.Arrangement {
		if id != "" && !known(id) {
			return fmt.Errorf("%w: position %s references unknown player %s", ErrInvariant, pos, id)
		}
	}
	if s.Winner != nil {
		for _, id := range s.Winner.WinnerIDs {
			if !known(id) {
				return fmt.Errorf("%w: winner %s is not a player", ErrInvariant, id)
			}
		}
	}
	return nil
}
