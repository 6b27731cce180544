package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command validation.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrBadMove       = "E_BAD_MOVE"
	ErrBadCode       = "E_BAD_CODE"
	ErrUnknownRobot  = "E_UNKNOWN_ROBOT"
	ErrNotRunning    = "E_NOT_RUNNING"
	ErrIntentPending = "E_INTENT_PENDING"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrBadMove:         {},
	ErrBadCode:         {},
	ErrUnknownRobot:    {},
	ErrNotRunning:      {},
	ErrIntentPending:   {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
