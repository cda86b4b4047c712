package llm

import "errors"

// ErrBackendUnavailable indicates the completion call failed or timed out.
// It is surfaced per-call; the router translates it into a failure notice
// and the session history is left untouched.
var ErrBackendUnavailable = errors.New("completion backend unavailable")
