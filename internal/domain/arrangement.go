package domain

import (
	"errors"
	"fmt"
)

// Position is a named seat at the physical table.
type Position string

const (
	PositionBottom Position = "bottom"
	PositionLeft   Position = "left"
	PositionTop    Position = "top"
	PositionRight  Position = "right"
)

// Positions lists the table positions clockwise from bottom.
var Positions = [4]Position{PositionBottom, PositionLeft, PositionTop, PositionRight}

const (
	Team1Name = "team1"
	Team2Name = "team2"
)

// Arrangement assigns player ids to table positions. Unassigned positions are absent.
type Arrangement map[Position]string

var (
	ErrUnknownPosition   = errors.New("unknown table position")
	ErrDuplicateSeat     = errors.New("player assigned to more than one position")
	ErrArrangedNonPlayer = errors.New("arranged player is not in the room")
)

// Validate checks positions, duplicates and membership against players.
func (a Arrangement) Validate(players map[string]*Player) error {
	seen := make(map[string]Position, len(a))
	for pos, id := range a {
		if !pos.valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPosition, pos)
		}
		if id == "" {
			continue
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s at %s and %s", ErrDuplicateSeat, id, prev, pos)
		}
		if _, ok := players[id]; !ok {
			return fmt.Errorf("%w: %s", ErrArrangedNonPlayer, id)
		}
		seen[id] = pos
	}
	return nil
}

// Complete reports whether all four positions are filled.
func (a Arrangement) Complete() bool {
	for _, pos := range Positions {
		if a[pos] == "" {
			return false
		}
	}
	return true
}

// Teams derives the two partnerships: bottom/top against left/right. It
// returns nil when the arrangement is incomplete, which disables team mode.
func (a Arrangement) Teams() *Teams {
	if !a.Complete() {
		return nil
	}
	return &Teams{
		Team1: Team{Name: Team1Name, MemberIDs: []string{a[PositionBottom], a[PositionTop]}},
		Team2: Team{Name: Team2Name, MemberIDs: []string{a[PositionLeft], a[PositionRight]}},
	}
}

// ApplyTeams sets or clears each player's TeamID to match teams.
func ApplyTeams(players map[string]*Player, teams *Teams) {
	for _, p := range players {
		p.TeamID = ""
	}
	if teams == nil {
		return
	}
	for _, t := range []Team{teams.Team1, teams.Team2} {
		for _, id := range t.MemberIDs {
			if p, ok := players[id]; ok {
				p.TeamID = t.Name
			}
		}
	}
}

func (p Position) valid() bool {
	for _, v := range Positions {
		if v == p {
			return true
		}
	}
	return false
}
