package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrMissingStats = errors.New("missing session stats")
	ErrMissingRow   = errors.New("leaderboard row missing for participant")
)
