package domain

// PickSelector returns the trump selector for the game numbered gameCount:
// the player at seat gameCount mod N. Returns "" for an empty table.
func PickSelector(seating Seating, gameCount int) string {
	n := seating.Len()
	if n == 0 {
		return ""
	}
	idx := gameCount % n
	if idx < 0 {
		idx += n
	}
	return seating.PlayerAt(idx)
}
