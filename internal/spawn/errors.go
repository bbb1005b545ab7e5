package spawn

import "outpost-server/internal/shared/errors"

var (
	ErrNoActiveSpawn     = errors.NotFound("no active spawn to claim")
	ErrAlreadyClaimed    = errors.Conflict("spawn already claimed")
	ErrRateLimited       = errors.RateLimited("wait a few seconds before claiming again")
	ErrFairnessViolation = errors.Forbidden("claim rejected by fairness rule")
)
