package world

import (
	"strings"

	"gridarena.ai/internal/protocol"
)

// Identity names the robot a command is for. Which fields are honored depends
// on the configured IdentityMode; in IdentityEither a code wins over an id.
type Identity struct {
	Robot *int
	Code  string
}

func RobotIdentity(id int) Identity { return Identity{Robot: &id} }

func CodeIdentity(code string) Identity { return Identity{Code: code} }

// resolveIdentity runs without the gate: codes are static configuration.
func (w *World) resolveIdentity(id Identity) (int, error) {
	code := strings.TrimSpace(id.Code)
	useCode := code != "" && w.cfg.IdentityMode != IdentityRobotID
	useID := id.Robot != nil && w.cfg.IdentityMode != IdentityAccessCode

	switch {
	case useCode:
		rid, ok := w.codeToRobot[code]
		if !ok {
			return 0, newValidationError(protocol.ErrBadCode, "code", "unknown access code")
		}
		return rid, nil
	case useID:
		rid := *id.Robot
		if rid < 0 || rid >= w.cfg.Robots {
			return 0, newValidationError(protocol.ErrUnknownRobot, "robot", "unknown robot %d", rid)
		}
		return rid, nil
	case w.cfg.IdentityMode == IdentityAccessCode:
		return 0, newValidationError(protocol.ErrBadCode, "code", "access code required")
	default:
		return 0, newValidationError(protocol.ErrBadRequest, "robot", "robot id required")
	}
}
