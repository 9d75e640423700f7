package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"courtpiece/internal/app"
	"courtpiece/internal/config"
	"courtpiece/internal/domain"
	"courtpiece/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
// The game itself lives in the Room's snapshot store; this struct only tracks
// connections and pacing.
type MatchState struct {
	RoomID        string                      `json:"room_id"`
	Tick          int64                       `json:"tick"`
	TickRate      int                         `json:"tick_rate"`
	ResolveDelay  time.Duration               `json:"resolve_delay"`
	ResolveAtTick int64                       `json:"resolve_at_tick"` // 0 when no trick is waiting
	EmptyGrace    time.Duration               `json:"empty_grace"`
	EmptySince    int64                       `json:"empty_since"` // tick the match last became empty
	Presences     map[string]runtime.Presence `json:"-"`           // Map UserId -> Presence for targeted messaging
	Room          *app.Room                   `json:"-"`
	Profiles      ports.ProfilePort           `json:"-"`
	Latest        *domain.Snapshot            `json:"-"` // last snapshot seen, for labels and join checks
	Pending       *domain.Snapshot            `json:"-"` // pushed by the room, not yet broadcast
	Unsubscribe   func()                      `json:"-"`
}

// OpenSeats returns how many more players the room can seat.
func (ms *MatchState) OpenSeats() int {
	if ms.Latest == nil || ms.Latest.Phase != domain.PhaseWaiting {
		return 0
	}
	return domain.PlayerCount - len(ms.Latest.Players)
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{
		newStore: func() ports.SnapshotStore { return NewNakamaSnapshotStore(nk) },
		profiles: NewNakamaAccountAdapter(nk),
	}, nil
}

type matchHandler struct {
	newStore func() ports.SnapshotStore
	profiles ports.ProfilePort
}

// MatchInit is called when the match is created.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing match handler.")

	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfgPath := defaultGameConfigPath
	if v, ok := env[envGameConfigPath]; ok && v != "" {
		cfgPath = v
	}
	if err := config.LoadGameConfig(cfgPath); err != nil {
		logger.Warn("MatchInit: Could not load game config, using defaults: %v", err)
	}
	cfg := config.GetGameConfig()

	state := &MatchState{
		TickRate:     cfg.TickRate(),
		ResolveDelay: cfg.TrickResolveDelay(),
		EmptyGrace:   cfg.EmptyMatchGrace(),
		Presences:    make(map[string]runtime.Presence),
		Profiles:     mh.profiles,
	}
	if val, ok := env[envTrickResolveDelayMs]; ok {
		if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
			state.ResolveDelay = time.Duration(ms) * time.Millisecond
		}
	}

	state.RoomID, _ = ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)
	if id, ok := params["room_id"].(string); ok && id != "" {
		state.RoomID = id
	}
	if state.RoomID == "" {
		state.RoomID = app.NewRoomID()
	}

	state.Room = app.NewRoom(state.RoomID, mh.newStore(), app.NewService(nil), logger)
	unsubscribe, err := state.Room.Subscribe(ctx, func(s *domain.Snapshot) {
		state.Latest = s
		state.Pending = s
	})
	if err != nil {
		logger.Error("MatchInit: Failed to load room %s: %v", state.RoomID, err)
		return nil, 0, ""
	}
	state.Unsubscribe = unsubscribe

	label, err := matchLabel(state)
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}

	logger.Info("MatchInit: Room %s ready (tick_rate=%d, resolve_delay=%s)", state.RoomID, state.TickRate, state.ResolveDelay)
	return state, state.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	// Seated players may always reconnect.
	if matchState.Latest != nil {
		if _, seated := matchState.Latest.Players[presence.GetUserId()]; seated {
			return state, true, ""
		}
	}
	if matchState.OpenSeats() <= 0 {
		return state, false, "Match full or in progress"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		matchState.Presences[userID] = p

		profile := app.PlayerProfile{ID: userID, DisplayName: p.GetUsername()}
		if matchState.Profiles != nil {
			if acc, err := matchState.Profiles.GetProfile(ctx, userID); err != nil {
				logger.Warn("MatchJoin: Could not load profile for %s: %v", userID, err)
			} else {
				if acc.DisplayName != "" {
					profile.DisplayName = acc.DisplayName
				}
				profile.AvatarRef = acc.AvatarRef
			}
		}

		events, err := mh.applyLatest(ctx, matchState, logger, app.JoinCommand{Profile: profile})
		if err != nil {
			logger.Warn("MatchJoin: User %s could not be seated: %v", userID, err)
			continue
		}
		mh.broadcastEvents(matchState, dispatcher, logger, events)
	}

	// A reconnecting player needs the table even if nothing changed.
	if matchState.Pending == nil {
		matchState.Pending = matchState.Latest
	}
	mh.flush(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		userID := p.GetUserId()
		delete(matchState.Presences, userID)

		// Mid-game the player keeps their seat so they can reconnect.
		if matchState.Latest == nil || matchState.Latest.Phase != domain.PhaseWaiting {
			logger.Debug("MatchLeave: User %s disconnected mid-game, seat kept.", userID)
			continue
		}
		events, err := mh.applyLatest(ctx, matchState, logger, app.LeaveCommand{PlayerID: userID})
		if err != nil {
			logger.Warn("MatchLeave: Could not remove %s: %v", userID, err)
			continue
		}
		mh.broadcastEvents(matchState, dispatcher, logger, events)
	}

	if len(matchState.Presences) == 0 {
		matchState.EmptySince = tick
	}

	mh.flush(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		mh.handleMessage(ctx, matchState, dispatcher, logger, msg)
	}

	mh.processPendingTrick(ctx, matchState, dispatcher, logger)
	mh.flush(matchState, dispatcher, logger)

	if len(matchState.Presences) == 0 && tick-matchState.EmptySince >= matchState.ticksFor(matchState.EmptyGrace) {
		logger.Info("MatchLoop: Terminating empty match %s.", matchState.RoomID)
		return nil
	}
	return matchState
}

func (mh *matchHandler) handleMessage(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	if msg.GetOpCode() == OpRequestSnapshot {
		mh.sendSnapshot(state, dispatcher, logger, senderID)
		return
	}

	version, cmd, err := decodeCommand(msg.GetOpCode(), msg.GetData(), senderID)
	if err != nil {
		logger.Warn("MatchLoop: Bad message from %s: %v", senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, msg.GetOpCode(), err)
		return
	}

	_, events, err := state.Room.Apply(ctx, version, cmd)
	if err != nil {
		logger.Warn("MatchLoop: %s from %s rejected: %v", cmd.Name(), senderID, err)
		mh.sendError(state, dispatcher, logger, senderID, msg.GetOpCode(), err)
		return
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

// processPendingTrick resolves a full trick once it has been on the table for
// the configured delay.
func (mh *matchHandler) processPendingTrick(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Latest == nil || state.Latest.Phase != domain.PhasePlaying || !state.Latest.TrickFull() {
		state.ResolveAtTick = 0
		return
	}
	if state.ResolveAtTick == 0 {
		state.ResolveAtTick = state.Tick + state.ticksFor(state.ResolveDelay)
		logger.Debug("processPendingTrick: Trick full, resolving at tick %d (current %d)", state.ResolveAtTick, state.Tick)
	}
	if state.Tick < state.ResolveAtTick {
		return
	}

	state.ResolveAtTick = 0
	_, events, err := state.Room.ResolvePendingTrick(ctx)
	if err != nil {
		logger.Error("processPendingTrick: Failed to resolve trick: %v", err)
		return
	}
	mh.broadcastEvents(state, dispatcher, logger, events)
}

// applyLatest applies a server-originated command against the newest version,
// retrying once if another writer got there first.
func (mh *matchHandler) applyLatest(ctx context.Context, state *MatchState, logger runtime.Logger, cmd app.Command) ([]app.Event, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		cur, err := state.Room.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		_, events, err := state.Room.Apply(ctx, cur.Version, cmd)
		if err == nil {
			return events, nil
		}
		if !errors.Is(err, app.ErrConflict) {
			return nil, err
		}
		logger.Debug("applyLatest: %s hit a version conflict, retrying", cmd.Name())
		lastErr = err
	}
	return nil, lastErr
}

func (ms *MatchState) ticksFor(d time.Duration) int64 {
	rate := ms.TickRate
	if rate <= 0 {
		rate = 1
	}
	ticks := int64(d * time.Duration(rate) / time.Second)
	if d > 0 && ticks == 0 {
		ticks = 1
	}
	return ticks
}

// flush broadcasts the pending snapshot, one view per connected presence, and
// refreshes the match label.
func (mh *matchHandler) flush(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Pending == nil {
		return
	}
	snap := state.Pending
	state.Pending = nil

	for userID := range state.Presences {
		mh.sendView(state, dispatcher, logger, snap, userID)
	}
	mh.updateLabel(state, dispatcher, logger)
}

func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	if state.Latest == nil {
		return
	}
	mh.sendView(state, dispatcher, logger, state.Latest, userID)
}

func (mh *matchHandler) sendView(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, snap *domain.Snapshot, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		return
	}
	data, err := encodeView(snap, userID)
	if err != nil {
		logger.Error("sendView: Failed to encode snapshot for %s: %v", userID, err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpSnapshot, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Warn("sendView: Failed to send snapshot to %s: %v", userID, err)
	}
}

// broadcastEvents dispatches app events. Targeted events go only to their
// connected recipients and are dropped if none are connected.
func (mh *matchHandler) broadcastEvents(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(OpEvent, data, recipients, nil, true); err != nil {
			logger.Warn("Failed to broadcast event %v: %v", ev.Kind, err)
		}
	}
}

// sendError sends an ErrorMessage to a specific user.
func (mh *matchHandler) sendError(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, op int64, cause error) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("Cannot send error to %s: Presence not found", userID)
		return
	}
	data, err := json.Marshal(ErrorMessage{Code: errorCode(cause), Message: cause.Error(), Op: op})
	if err != nil {
		logger.Error("Failed to marshal error message: %v", err)
		return
	}
	if err := dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Warn("Failed to send error to %s: %v", userID, err)
	}
}

// matchLabel renders the match listing label as JSON via a protobuf Struct.
func matchLabel(state *MatchState) (string, error) {
	phase := domain.PhaseWaiting
	players := 0
	if state.Latest != nil {
		phase = state.Latest.Phase
		players = len(state.Latest.Players)
	}
	label, err := structpb.NewStruct(map[string]interface{}{
		MatchLabelKey_Game:      GameLabel,
		MatchLabelKey_OpenSeats: state.OpenSeats(),
		MatchLabelKey_Phase:     string(phase),
		MatchLabelKey_Players:   players,
	})
	if err != nil {
		return "", err
	}
	b, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := matchLabel(state)
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	logger.Debug("MatchTerminate: Match terminated with %d seconds grace", graceSeconds)
	if matchState, ok := state.(*MatchState); ok && matchState.Unsubscribe != nil {
		matchState.Unsubscribe()
	}
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
