package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"courtpiece/internal/domain"
	"courtpiece/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentMessage struct {
	opCode     int64
	data       []byte
	recipients []string
}

// mockDispatcher records match dispatcher calls for assertions.
type mockDispatcher struct {
	sent         []sentMessage
	labelUpdates int
	lastLabel    string
}

func (md *mockDispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	msg := sentMessage{opCode: opCode, data: append([]byte(nil), data...)}
	for _, p := range presences {
		msg.recipients = append(msg.recipients, p.GetUserId())
	}
	md.sent = append(md.sent, msg)
	return nil
}

func (md *mockDispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	return nil
}

func (md *mockDispatcher) MatchKick(presences []runtime.Presence) error {
	return nil
}

func (md *mockDispatcher) MatchLabelUpdate(label string) error {
	md.labelUpdates++
	md.lastLabel = label
	return nil
}

func (md *mockDispatcher) reset() {
	md.sent = nil
}

// lastFor returns the most recent message with opCode addressed to userID.
func (md *mockDispatcher) lastFor(opCode int64, userID string) (sentMessage, bool) {
	for i := len(md.sent) - 1; i >= 0; i-- {
		m := md.sent[i]
		if m.opCode != opCode {
			continue
		}
		if len(m.recipients) == 0 {
			return m, true
		}
		for _, r := range m.recipients {
			if r == userID {
				return m, true
			}
		}
	}
	return sentMessage{}, false
}

// testPresence satisfies runtime.Presence; unused methods panic via the nil embed.
type testPresence struct {
	runtime.Presence
	userID string
}

func (p testPresence) GetUserId() string    { return p.userID }
func (p testPresence) GetSessionId() string { return "session-" + p.userID }
func (p testPresence) GetUsername() string  { return "user_" + p.userID }

// testMatchData satisfies runtime.MatchData.
type testMatchData struct {
	testPresence
	opCode int64
	data   []byte
}

func (m testMatchData) GetOpCode() int64      { return m.opCode }
func (m testMatchData) GetData() []byte       { return m.data }
func (m testMatchData) GetReliable() bool     { return true }
func (m testMatchData) GetReceiveTime() int64 { return 0 }

var _ runtime.MatchData = testMatchData{}

// fakeStorage mimics Nakama storage conditional writes.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]*api.StorageObject
	seq     int
	failErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string]*api.StorageObject)}
}

func (f *fakeStorage) StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[r.Collection+"/"+r.Key]; ok {
			out = append(out, proto.Clone(obj).(*api.StorageObject))
		}
	}
	return out, nil
}

func (f *fakeStorage) StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	var acks []*api.StorageObjectAck
	for _, w := range writes {
		key := w.Collection + "/" + w.Key
		existing, ok := f.objects[key]
		switch {
		case w.Version == "*" && ok:
			return nil, errors.New("Storage write rejected - version check failed.")
		case w.Version != "" && w.Version != "*" && (!ok || existing.Version != w.Version):
			return nil, errors.New("Storage write rejected - version check failed.")
		}
		f.seq++
		version := fmt.Sprintf("v%d", f.seq)
		f.objects[key] = &api.StorageObject{Collection: w.Collection, Key: w.Key, Value: w.Value, Version: version}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key, Version: version})
	}
	return acks, nil
}

type fakeProfiles struct{}

func (fakeProfiles) GetProfile(ctx context.Context, userID string) (ports.Profile, error) {
	if userID == "ghost" {
		return ports.Profile{}, errors.New("account not found")
	}
	return ports.Profile{DisplayName: "Display " + userID, AvatarRef: "avatar-" + userID}, nil
}

// labelOf decodes a match label. protojson output is not byte-stable, so
// labels are compared as values.
func labelOf(t *testing.T, label string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(label), &m); err != nil {
		t.Fatalf("decode label %q: %v", label, err)
	}
	return m
}

type matchFixture struct {
	t          *testing.T
	ctx        context.Context
	handler    *matchHandler
	dispatcher *mockDispatcher
	storage    *fakeStorage
	state      *MatchState
	tick       int64
}

func newMatchFixture(t *testing.T, env map[string]string) *matchFixture {
	t.Helper()
	storage := newFakeStorage()
	handler := &matchHandler{
		newStore: func() ports.SnapshotStore { return NewNakamaSnapshotStore(storage) },
		profiles: fakeProfiles{},
	}
	if env == nil {
		env = map[string]string{}
	}
	if _, ok := env[envGameConfigPath]; !ok {
		env[envGameConfigPath] = "testdata/missing.json"
	}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_ENV, env)
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, "match-1.node")

	state, tickRate, label := handler.MatchInit(ctx, noopLogger{}, nil, nil, map[string]interface{}{})
	if state == nil {
		t.Fatalf("MatchInit returned nil state")
	}
	if tickRate <= 0 {
		t.Fatalf("tick rate = %d", tickRate)
	}
	if got := labelOf(t, label); got[MatchLabelKey_OpenSeats] != float64(4) || got[MatchLabelKey_Game] != GameLabel {
		t.Fatalf("initial label = %s", label)
	}
	return &matchFixture{
		t:          t,
		ctx:        ctx,
		handler:    handler,
		dispatcher: &mockDispatcher{},
		storage:    storage,
		state:      state.(*MatchState),
	}
}

func (f *matchFixture) join(ids ...string) {
	f.t.Helper()
	presences := make([]runtime.Presence, 0, len(ids))
	for _, id := range ids {
		p := testPresence{userID: id}
		_, ok, reason := f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, p, nil)
		if !ok {
			f.t.Fatalf("join attempt for %s rejected: %s", id, reason)
		}
		presences = append(presences, p)
	}
	f.handler.MatchJoin(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, presences)
}

func (f *matchFixture) send(userID string, op int64, req interface{}) {
	f.t.Helper()
	var data []byte
	if req != nil {
		var err error
		if data, err = json.Marshal(req); err != nil {
			f.t.Fatalf("marshal request: %v", err)
		}
	}
	f.loop(testMatchData{testPresence: testPresence{userID: userID}, opCode: op, data: data})
}

func (f *matchFixture) loop(msgs ...runtime.MatchData) interface{} {
	f.tick++
	return f.handler.MatchLoop(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, msgs)
}

func (f *matchFixture) version() int64 {
	return f.state.Latest.Version
}

func (f *matchFixture) lastError(userID string) (ErrorMessage, bool) {
	m, ok := f.dispatcher.lastFor(OpError, userID)
	if !ok {
		return ErrorMessage{}, false
	}
	var e ErrorMessage
	if err := json.Unmarshal(m.data, &e); err != nil {
		f.t.Fatalf("decode error message: %v", err)
	}
	return e, true
}

func (f *matchFixture) viewFor(userID string) map[string]interface{} {
	f.t.Helper()
	m, ok := f.dispatcher.lastFor(OpSnapshot, userID)
	if !ok {
		f.t.Fatalf("no snapshot sent to %s", userID)
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(m.data, st); err != nil {
		f.t.Fatalf("decode snapshot: %v", err)
	}
	return st.AsMap()
}

// startPlaying seats four players, readies them and picks hearts as trump.
func (f *matchFixture) startPlaying() {
	f.t.Helper()
	f.join("a", "b", "c", "d")
	for _, id := range []string{"a", "b", "c", "d"} {
		f.send(id, OpSetReady, CommandRequest{Version: f.version()})
	}
	f.send("a", OpStartGame, CommandRequest{Version: f.version()})
	if f.state.Latest.Phase != domain.PhaseTrumpSelection {
		f.t.Fatalf("phase = %s, want trump_selection", f.state.Latest.Phase)
	}
	f.send(f.state.Latest.TrumpSelectorID, OpSelectTrump, CommandRequest{Version: f.version(), Suit: domain.SuitHearts})
	if f.state.Latest.Phase != domain.PhasePlaying {
		f.t.Fatalf("phase = %s, want playing", f.state.Latest.Phase)
	}
}

func (f *matchFixture) playCurrent() {
	f.t.Helper()
	s := f.state.Latest
	actor := domain.CurrentPlayerID(s)
	legal := domain.LegalCards(s.Players[actor].Hand, s.LeadSuit)
	f.send(actor, OpPlayCard, CommandRequest{Version: s.Version, Card: &legal[0]})
}

func TestMatchJoinSeatsPlayersWithProfiles(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("a", "b")

	if len(f.state.Latest.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(f.state.Latest.Players))
	}
	if got := f.state.Latest.Players["a"].DisplayName; got != "Display a" {
		t.Fatalf("display name = %q, want profile name", got)
	}
	if labelOf(t, f.dispatcher.lastLabel)[MatchLabelKey_OpenSeats] != float64(2) {
		t.Fatalf("label = %s, want 2 open seats", f.dispatcher.lastLabel)
	}

	view := f.viewFor("a")
	if view["phase"] != string(domain.PhaseWaiting) {
		t.Fatalf("view phase = %v", view["phase"])
	}

	stored, err := NewNakamaSnapshotStore(f.storage).ReadSnapshot(f.ctx, f.state.RoomID)
	if err != nil {
		t.Fatalf("stored snapshot: %v", err)
	}
	if stored.Version != f.version() {
		t.Fatalf("stored version = %d, want %d", stored.Version, f.version())
	}
}

func TestMatchJoinFallsBackToUsername(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("ghost")
	if got := f.state.Latest.Players["ghost"].DisplayName; got != "user_ghost" {
		t.Fatalf("display name = %q, want username fallback", got)
	}
}

func TestMatchJoinAttemptRejectsFullOrRunningRoom(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.startPlaying()

	_, ok, _ := f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, testPresence{userID: "e"}, nil)
	if ok {
		t.Fatalf("fifth player admitted to a running game")
	}
	_, ok, _ = f.handler.MatchJoinAttempt(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, testPresence{userID: "b"}, nil)
	if !ok {
		t.Fatalf("seated player could not reconnect")
	}
}

func TestMatchSnapshotsHideOtherHands(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.startPlaying()

	view := f.viewFor("b")
	players := view["players"].(map[string]interface{})
	for id, raw := range players {
		p := raw.(map[string]interface{})
		if p["hand_count"].(float64) != 13 {
			t.Fatalf("%s hand_count = %v", id, p["hand_count"])
		}
		_, hasHand := p["hand"]
		if id == "b" && !hasHand {
			t.Fatalf("viewer's own hand missing")
		}
		if id != "b" && hasHand {
			t.Fatalf("hand of %s leaked to b", id)
		}
	}
	if _, ok := view["deck"]; ok {
		t.Fatalf("undealt remainder leaked")
	}
}

func TestMatchRejectsCommandsWithErrors(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.startPlaying()
	s := f.state.Latest
	notTurn := domain.NewSeating(s.Players).PlayerAt((s.TurnIndex + 1) % 4)
	card := s.Players[notTurn].Hand[0]

	f.dispatcher.reset()
	f.send(notTurn, OpPlayCard, CommandRequest{Version: s.Version, Card: &card})
	e, ok := f.lastError(notTurn)
	if !ok || e.Code != 400 || e.Op != OpPlayCard {
		t.Fatalf("wrong-turn error = %+v (sent=%v)", e, ok)
	}
	if m, _ := f.dispatcher.lastFor(OpError, notTurn); len(m.recipients) != 1 {
		t.Fatalf("error broadcast to %v, want only the submitter", m.recipients)
	}
	if f.version() != s.Version {
		t.Fatalf("rejected play changed version")
	}

	actor := domain.CurrentPlayerID(s)
	f.send(actor, OpPlayCard, CommandRequest{Version: s.Version - 1, Card: &s.Players[actor].Hand[0]})
	if e, _ := f.lastError(actor); e.Code != 409 {
		t.Fatalf("stale play error code = %d, want 409", e.Code)
	}

	f.send(actor, OpPlayCard, CommandRequest{Version: s.Version})
	if e, _ := f.lastError(actor); e.Code != 400 || !strings.Contains(e.Message, "card is required") {
		t.Fatalf("missing card error = %+v", e)
	}

	f.loop(testMatchData{testPresence: testPresence{userID: actor}, opCode: OpPlayCard, data: []byte("{")})
	if e, _ := f.lastError(actor); e.Code != 400 {
		t.Fatalf("malformed payload error = %+v", e)
	}
}

func TestMatchResolvesTrickAfterDelay(t *testing.T) {
	f := newMatchFixture(t, map[string]string{envTrickResolveDelayMs: "1000"})
	f.startPlaying()

	for i := 0; i < 4; i++ {
		f.playCurrent()
	}
	if !f.state.Latest.TrickFull() {
		t.Fatalf("trick not full after four plays")
	}
	fullAt := f.tick
	wait := f.state.ticksFor(time.Second)

	for f.state.Latest.TrickFull() {
		if f.tick-fullAt > wait+1 {
			t.Fatalf("trick still pending %d ticks after it filled", f.tick-fullAt)
		}
		f.loop()
	}
	if f.tick-fullAt < wait {
		t.Fatalf("trick resolved after %d ticks, want at least %d", f.tick-fullAt, wait)
	}

	s := f.state.Latest
	if s.HandNumber != 1 || s.LastTrick == nil {
		t.Fatalf("hand=%d last=%v", s.HandNumber, s.LastTrick)
	}
	if s.TurnIndex != domain.SeatIndex(s.Players, s.LastTrick.WinnerID) {
		t.Fatalf("turn index %d is not the winner's seat", s.TurnIndex)
	}
}

func TestMatchPlaysFullGame(t *testing.T) {
	f := newMatchFixture(t, map[string]string{envTrickResolveDelayMs: "0"})
	f.startPlaying()

	for guard := 0; f.state.Latest.Phase == domain.PhasePlaying; guard++ {
		if guard > 200 {
			t.Fatalf("game did not complete")
		}
		if f.state.Latest.TrickFull() {
			f.loop()
			continue
		}
		f.playCurrent()
	}

	s := f.state.Latest
	if s.Phase != domain.PhaseGameComplete || s.Winner == nil {
		t.Fatalf("phase = %s winner = %v", s.Phase, s.Winner)
	}
	if _, ok := f.dispatcher.lastFor(OpEvent, "a"); !ok {
		t.Fatalf("no events broadcast")
	}

	f.send("c", OpRequestNewGame, CommandRequest{Version: f.version()})
	if f.state.Latest.Phase != domain.PhaseWaiting || len(f.state.Latest.Players) != 4 {
		t.Fatalf("new game did not reopen the table")
	}
	if labelOf(t, f.dispatcher.lastLabel)[MatchLabelKey_Phase] != string(domain.PhaseWaiting) {
		t.Fatalf("label = %s", f.dispatcher.lastLabel)
	}
}

func TestMatchHandDealtIsPrivate(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("a", "b", "c", "d")
	for _, id := range []string{"a", "b", "c", "d"} {
		f.send(id, OpSetReady, CommandRequest{Version: f.version()})
	}
	f.dispatcher.reset()
	f.send("a", OpStartGame, CommandRequest{Version: f.version()})

	dealt := 0
	for _, m := range f.dispatcher.sent {
		if m.opCode != OpEvent || !strings.Contains(string(m.data), `"hand_dealt"`) {
			continue
		}
		dealt++
		if len(m.recipients) != 1 {
			t.Fatalf("hand_dealt sent to %v", m.recipients)
		}
	}
	if dealt != 4 {
		t.Fatalf("hand_dealt messages = %d, want 4", dealt)
	}
}

func TestMatchLeaveAndTerminate(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("a", "b")

	f.handler.MatchLeave(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, []runtime.Presence{testPresence{userID: "b"}})
	if _, ok := f.state.Latest.Players["b"]; ok {
		t.Fatalf("b still seated after leaving the lobby")
	}

	f.handler.MatchLeave(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, []runtime.Presence{testPresence{userID: "a"}})
	grace := f.state.ticksFor(f.state.EmptyGrace)
	for i := int64(0); i < grace-1; i++ {
		if f.loop() == nil {
			t.Fatalf("match terminated before the grace period")
		}
	}
	if f.loop() != nil {
		t.Fatalf("empty match not terminated after grace period")
	}
}

func TestMatchLeaveMidGameKeepsSeat(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.startPlaying()

	f.handler.MatchLeave(f.ctx, noopLogger{}, nil, nil, f.dispatcher, f.tick, f.state, []runtime.Presence{testPresence{userID: "c"}})
	if _, ok := f.state.Latest.Players["c"]; !ok {
		t.Fatalf("mid-game leave removed the player")
	}
	f.join("c")
	if len(f.state.Latest.Players["c"].Hand) != 13 {
		t.Fatalf("reconnected player lost their hand")
	}
}

func TestMatchEndGame(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.startPlaying()
	gameCount := f.state.Latest.GameCount

	f.send("d", OpEndGame, CommandRequest{Version: f.version()})
	s := f.state.Latest
	if s.Phase != domain.PhaseWaiting || len(s.Players) != 0 || s.GameCount != gameCount {
		t.Fatalf("after end game: phase=%s players=%d game_count=%d", s.Phase, len(s.Players), s.GameCount)
	}
}

func TestMatchRequestSnapshot(t *testing.T) {
	f := newMatchFixture(t, nil)
	f.join("a")
	f.dispatcher.reset()

	f.send("a", OpRequestSnapshot, nil)
	if _, ok := f.dispatcher.lastFor(OpSnapshot, "a"); !ok {
		t.Fatalf("snapshot request not answered")
	}
}

func TestTicksFor(t *testing.T) {
	s := &MatchState{TickRate: 5}
	tests := []struct {
		d    time.Duration
		want int64
	}{
		{0, 0},
		{100 * time.Millisecond, 1},
		{time.Second, 5},
		{2 * time.Second, 10},
	}
	for _, tt := range tests {
		if got := s.ticksFor(tt.d); got != tt.want {
			t.Fatalf("ticksFor(%v) = %d, want %d", tt.d, got, tt.want)
		}
	}
}
