package premium

import "outpost-server/internal/shared/errors"

var (
	ErrInvalidKind    = errors.Validation("premium kind must be user or server")
	ErrInvalidSubject = errors.Validation("premium subject is required")
	ErrInvalidExpiry  = errors.Validation("premium expiry must be in the future")
)
