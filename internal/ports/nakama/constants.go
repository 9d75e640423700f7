package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"
	// RpcGetSnapshot returns the caller's view of a room without joining its match.
	RpcGetSnapshot = "get_snapshot"

	// MatchNameCourtPiece is the authoritative match handler name registered with Nakama.
	MatchNameCourtPiece = "courtpiece_match"

	// GameLabel identifies Court Piece matches in match listings.
	GameLabel = "courtpiece"
)

// Match label keys.
const (
	MatchLabelKey_Game      = "game"
	MatchLabelKey_OpenSeats = "open"
	MatchLabelKey_Phase     = "phase"
	MatchLabelKey_Players   = "players"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSetReady        int64 = 1
	OpArrangeSeats    int64 = 2
	OpStartGame       int64 = 3
	OpSelectTrump     int64 = 4
	OpPlayCard        int64 = 5
	OpRequestNewGame  int64 = 6
	OpEndGame         int64 = 7
	OpRequestSnapshot int64 = 8

	// Server -> Client events
	OpSnapshot int64 = 100 // per-viewer snapshot, protobuf Struct
	OpEvent    int64 = 101 // JSON app event; hand_dealt is sent privately
	OpError    int64 = 102 // JSON error, sent to the submitter only
)

// Runtime environment keys read in MatchInit.
const (
	envTrickResolveDelayMs = "courtpiece_trick_resolve_delay_ms"
	envGameConfigPath      = "courtpiece_game_config"

	defaultGameConfigPath = "data/game_config.json"
)
