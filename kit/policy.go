package kit

// FailurePolicy names how a component reacts when its upstream call fails.
type FailurePolicy string

const (
	// DegradeToPlaceholder absorbs the failure and returns a synthesized
	// placeholder value. Placeholders are never cached.
	DegradeToPlaceholder FailurePolicy = "degrade-to-placeholder"

	// PropagateAndLetCallerSubstitute returns the error; the caller decides
	// whether to substitute a fallback value.
	PropagateAndLetCallerSubstitute FailurePolicy = "propagate-and-let-caller-substitute"

	// Propagate returns the error and no fallback exists.
	Propagate FailurePolicy = "propagate"
)
