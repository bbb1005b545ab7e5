package population

import "outpost-server/internal/shared/errors"

var (
	ErrPopulationNotFound = errors.NotFound("population not found")
)
