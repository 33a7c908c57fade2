package decision

import "errors"

// Error taxonomy. Unknown roles and empty strategy sets indicate bad input
// or broken tables upstream; the arbiter recovers from the former with
// hard-coded fallbacks and surfaces the latter as a hard failure.
var (
	// ErrUnknownRole marks a role outside the closed enum. Recovered
	// locally via the fallback matrix; never propagated by the arbiter.
	ErrUnknownRole = errors.New("unknown role")

	// ErrEmptyStrategySet indicates a broken strategy table. This is a
	// programming error and is always surfaced.
	ErrEmptyStrategySet = errors.New("empty strategy set")

	// ErrMalformedTree indicates inconsistent node indices in a decision
	// tree. Evaluation recovers with a root-only path.
	ErrMalformedTree = errors.New("malformed decision tree")

	// ErrAllEnginesFailed is logged (never returned to callers) when every
	// sub-engine failed and the arbiter fell back to the terminal
	// utility-only answer.
	ErrAllEnginesFailed = errors.New("all decision engines failed")
)
