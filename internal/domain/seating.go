package domain

import "sort"

// Seating is the canonical seat order for one player set: player ids sorted
// lexicographically. Deal order, turn checks, selector rotation and
// trick-winner mapping all go through the same Seating.
type Seating struct {
	order []string
	index map[string]int
}

// NewSeating computes the seat order for the current players.
func NewSeating(players map[string]*Player) Seating {
	order := make([]string, 0, len(players))
	for id := range players {
		order = append(order, id)
	}
	sort.Strings(order)

	index := make(map[string]int, len(order))
	for i, id := range order {
		index[id] = i
	}
	return Seating{order: order, index: index}
}

// Order returns the player ids in seat order.
func (s Seating) Order() []string {
	return append([]string(nil), s.order...)
}

// Len is the number of seated players.
func (s Seating) Len() int {
	return len(s.order)
}

// Index returns the seat index for playerID, or -1 if the player is not seated.
func (s Seating) Index(playerID string) int {
	if i, ok := s.index[playerID]; ok {
		return i
	}
	return -1
}

// PlayerAt returns the player id at seat i, or "" when out of range.
func (s Seating) PlayerAt(i int) string {
	if i < 0 || i >= len(s.order) {
		return ""
	}
	return s.order[i]
}

// SeatIndex is the one-shot form of NewSeating(players).Index(playerID).
func SeatIndex(players map[string]*Player, playerID string) int {
	return NewSeating(players).Index(playerID)
}

// CurrentPlayerID returns the id of the player allowed to act at turnIndex.
func CurrentPlayerID(s *Snapshot) string {
	return NewSeating(s.Players).PlayerAt(s.TurnIndex)
}
