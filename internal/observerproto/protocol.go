package observerproto

import "gridarena.ai/internal/protocol"

// Version is the observer protocol version (separate from the player WS protocol).
const Version = "0.1"

// Client -> Server. First message on the observer WS connection, and can be re-sent to update settings.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// EveryNTicks thins the stream; 1 sends every update.
	EveryNTicks int `json:"every_n_ticks"`
	// Top limits the leaderboard length.
	Top int `json:"top"`
}

// HTTP response for GET /admin/v1/observer/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	Tick            uint64      `json:"tick"`
	Generation      uint64      `json:"generation"`
	Running         bool        `json:"running"`
	WorldParams     WorldParams `json:"world_params"`

	Obstacles []protocol.CellView `json:"obstacles"`
}

type WorldParams struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Robots       int    `json:"robots"`
	Prizes       int    `json:"prizes"`
	TickMs       int64  `json:"tick_ms"`
	Seed         int64  `json:"seed"`
	IntentPolicy string `json:"intent_policy"`
	IdentityMode string `json:"identity_mode"`
}

// Server -> Client. Sent after every world update the subscriber asked for.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`
	Generation      uint64 `json:"generation"`
	Running         bool   `json:"running"`

	Robots      []protocol.RobotView `json:"robots"`
	Prizes      []protocol.PrizeView `json:"prizes"`
	PrizesLeft  int                  `json:"prizes_left"`
	Leaderboard []ScoreEntry         `json:"leaderboard"`

	// Obstacles only change on reset; they are sent on the first message and
	// whenever the generation changes.
	Obstacles []protocol.CellView `json:"obstacles,omitempty"`
}

type ScoreEntry struct {
	RobotID int `json:"robot_id"`
	Score   int `json:"score"`
}
