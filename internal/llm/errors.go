package llm

import "errors"

// Provider-level failure taxonomy. Callers match these with errors.Is;
// the orchestrator maps them onto terminal stream error events.
var (
	// ErrTimeout means the completion call exceeded its deadline. Surfaced
	// without internal retry; the caller decides what to do next.
	ErrTimeout = errors.New("llm request timed out")

	// ErrRateLimited means the upstream API kept returning 429 after all
	// retry attempts were exhausted.
	ErrRateLimited = errors.New("llm rate limit exceeded")

	// ErrUnavailable means the upstream API kept returning 502/503 after
	// all retry attempts were exhausted.
	ErrUnavailable = errors.New("llm service unavailable")

	// ErrConfiguration means the API rejected our credentials (401). This
	// indicates a broken deployment, not a transient condition: it is never
	// retried and never exposed verbatim to clients.
	ErrConfiguration = errors.New("llm configuration error")
)
