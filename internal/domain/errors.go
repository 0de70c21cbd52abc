package domain

import "errors"

// Error kinds. Adapters wrap one of these so callers can classify failures
// with errors.Is regardless of which source produced them.
var (
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrMalformedPayload    = errors.New("malformed upstream payload")
	ErrInvalidDirective    = errors.New("invalid override directive")
	ErrOverrideConflict    = errors.New("override store changed since it was read")
)

// Source names the upstream an error came from.
type Source string

const (
	SourceCatalog       Source = "catalog"
	SourceLiveStatus    Source = "live_status"
	SourceOverrideStore Source = "override_store"
)

// SourceError attaches the failing upstream to an error.
type SourceError struct {
	Source Source
	Err    error
}

func (e *SourceError) Error() string {
	return string(e.Source) + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// FailedSource reports which upstream caused err, if any.
func FailedSource(err error) (Source, bool) {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Source, true
	}
	return "", false
}
