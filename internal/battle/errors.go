package battle

import "outpost-server/internal/shared/errors"

var (
	ErrBattleNotFound  = errors.NotFound("battle not found")
	ErrBattleNotActive = errors.Conflict("battle is not active")
	ErrInvalidTarget   = errors.Validation("invalid battle target")
	ErrInvalidAction   = errors.Validation("invalid battle action")
	ErrNoBossAvailable = errors.NotFound("no raid bosses available")
)
