package replicate

import "errors"

// Sentinel errors. Callers classify failures with errors.Is; every error carries
// context through fmt.Errorf wrapping.
var (
	ErrRootNotFound             = errors.New("root not found")
	ErrNoChildren               = errors.New("root has no children")
	ErrInsufficientChildren     = errors.New("not enough children")
	ErrUnknownSourceChild       = errors.New("source child does not belong to root")
	ErrDuplicateChild           = errors.New("source child listed twice")
	ErrDestinationCollision     = errors.New("destination child already taken")
	ErrDestinationAlreadyExists = errors.New("destination root already present")
	ErrSourceTableEmpty         = errors.New("source table has no rows for root")
	ErrNotImplemented           = errors.New("placeholder source children are not supported")
	ErrInvalidMapping           = errors.New("invalid mapping")
	ErrMalformedIdentifier      = errors.New("malformed identifier")
	ErrSameRoot                 = errors.New("destination root equals source root")
	ErrWriteFailed              = errors.New("destination write failed")
)
