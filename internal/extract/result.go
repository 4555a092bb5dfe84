package extract

import "fmt"

// Status is the outcome class of processing one element.
type Status int

const (
	// StatusOK means the element produced nodes and/or relationships.
	StatusOK Status = iota
	// StatusSkipped means the element was intentionally not extracted;
	// Reason says why and feeds the skip counters.
	StatusSkipped
	// StatusFailed means extraction was attempted but hit a real error.
	StatusFailed
)

// Result reports what happened to a single element. Skips are part of the
// normal flow (unsupported resources, absent fields); failures are not.
type Result struct {
	Status Status
	Kind   ElementKind
	Reason string
	Err    error
}

// Ok marks an element as extracted under the given (possibly refined) kind.
func Ok(kind ElementKind) Result {
	return Result{Status: StatusOK, Kind: kind}
}

// Skipped marks an element as intentionally dropped.
func Skipped(kind ElementKind, reason string) Result {
	return Result{Status: StatusSkipped, Kind: kind, Reason: reason}
}

// Failed marks an element whose extraction errored.
func Failed(kind ElementKind, err error) Result {
	return Result{Status: StatusFailed, Kind: kind, Err: err}
}

func (r Result) String() string {
	switch r.Status {
	case StatusSkipped:
		return fmt.Sprintf("skipped(%s): %s", r.Kind, r.Reason)
	case StatusFailed:
		return fmt.Sprintf("failed(%s): %v", r.Kind, r.Err)
	default:
		return fmt.Sprintf("ok(%s)", r.Kind)
	}
}
