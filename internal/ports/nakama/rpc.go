package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// GetSnapshotRequest is the payload of the get_snapshot RPC.
type GetSnapshotRequest struct {
	RoomID string `json:"room_id"`
}

var errNoRoomID = errors.New("room_id is required")

// rpcGetSnapshot returns the caller's view of a room. Observers that are not
// seated see every public field but no hands.
func rpcGetSnapshot(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return getSnapshot(ctx, logger, NewNakamaSnapshotStore(nk), payload)
}

func getSnapshot(ctx context.Context, logger runtime.Logger, store ports.SnapshotStore, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	var req GetSnapshotRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError(fmt.Sprintf("invalid payload: %v", err), 3) // INVALID_ARGUMENT
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return "", runtime.NewError(errNoRoomID.Error(), 3)
	}

	snap, err := store.ReadSnapshot(ctx, roomID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		return "", runtime.NewError("room not found", 5) // NOT_FOUND
	}
	if err != nil {
		logger.Error("GetSnapshot [User:%s]: Failed to read room %s: %v", userID, roomID, err)
		return "", runtime.NewError("internal error", 13) // INTERNAL
	}

	b, err := json.Marshal(domain.ViewFor(snap, userID))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
