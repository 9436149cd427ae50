package reassign

// Options carries the external knobs the reassignment core consumes (§6).
// It never reads configuration itself; the surrounding service is
// responsible for producing an Options value.
type Options struct {
	// AllowNonRestoredState, when true, downgrades an unmapped-operator
	// condition (§4.8 rule 3) from a fatal UnmappedState error to a
	// diagnostic, and proceeds with reassignment for the operators that do
	// match.
	AllowNonRestoredState bool
}
