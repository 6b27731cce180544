package protocol

// STATE (server -> client). Sent on connect and after every world change.
type StateMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Running         bool        `json:"running"`
	Generation      uint64      `json:"generation"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	Robots          []RobotView `json:"robots"`
	Obstacles       []CellView  `json:"obstacles"`
	Prizes          []PrizeView `json:"prizes"`
}

type RobotView struct {
	ID    int `json:"id"`
	X     int `json:"x"`
	Y     int `json:"y"`
	Score int `json:"score"`
}

type CellView struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type PrizeView struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Value int `json:"value"`
}

// CMD (client -> server). Either Robot or Code identifies the robot,
// depending on the server's identity mode.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Robot           *int   `json:"robot,omitempty"`
	Code            string `json:"code,omitempty"`
	Move            string `json:"move"`
}

// ACK (server -> client) confirms a START, RESET or CMD.
type AckMsg struct {
	Type    string `json:"type"`
	Ref     string `json:"ref"`
	Tick    uint64 `json:"tick"`
	RobotID *int   `json:"robot_id,omitempty"`
}

// ERROR (server -> client). Code is one of the E_* constants.
type ErrorMsg struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusResponse is the body of the plain HTTP control endpoints.
type StatusResponse struct {
	Status string `json:"status,omitempty"`
	OK     bool   `json:"ok,omitempty"`
}

// ErrorResponse is the body of a rejected HTTP request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
