package crafting

import "outpost-server/internal/shared/errors"

var (
	ErrQueueFull        = errors.Conflict("crafting queue is full")
	ErrArtifactNotOwned = errors.NotFound("artifact not found in inventory")
	ErrInvalidFusion    = errors.Validation("fusion requires two distinct artifacts")
)
