package ports

import "context"

// Profile is the display identity of a player as known to the account system.
type Profile struct {
	DisplayName string
	AvatarRef   string
}

// ProfilePort resolves display profiles for joining players.
type ProfilePort interface {
	// GetProfile returns the display name and avatar reference for userID.
	// Returns an error if the account cannot be loaded.
	GetProfile(ctx context.Context, userID string) (Profile, error)
}
