package nakama

import (
	"context"
	"fmt"

	"courtpiece/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
)

// AccountAPI is the subset of runtime.NakamaModule used for profile lookups.
type AccountAPI interface {
	AccountGetId(ctx context.Context, userID string) (*api.Account, error)
}

// NakamaAccountAdapter implements ports.ProfilePort using Nakama's account API.
type NakamaAccountAdapter struct {
	nk AccountAPI
}

// NewNakamaAccountAdapter creates a new account adapter.
func NewNakamaAccountAdapter(nk AccountAPI) *NakamaAccountAdapter {
	return &NakamaAccountAdapter{nk: nk}
}

// GetProfile loads the account and prefers the display name over the username.
func (a *NakamaAccountAdapter) GetProfile(ctx context.Context, userID string) (ports.Profile, error) {
	account, err := a.nk.AccountGetId(ctx, userID)
	if err != nil {
		return ports.Profile{}, fmt.Errorf("get account %s: %w", userID, err)
	}
	user := account.GetUser()
	name := user.GetDisplayName()
	if name == "" {
		name = user.GetUsername()
	}
	return ports.Profile{DisplayName: name, AvatarRef: user.GetAvatarUrl()}, nil
}

var _ ports.ProfilePort = (*NakamaAccountAdapter)(nil)
