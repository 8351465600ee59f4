package rexpr

// Subr is the host-supplied vtable the engine delegates atom parsing
// and evaluation to. Parse and Process are mandatory; hosts that need
// static cost estimates or cleanup implement PrioritySubr / DestroySubr
// as well, detected by type assertion so the capability costs nothing
// when unused.
type Subr interface {
	// Parse consumes a prefix of text starting at the engine's current
	// cursor and returns the host's opaque atom value together with the
	// number of bytes consumed. Returning consumed <= 0, or a non-nil
	// error, fails the parse with AtomParseFailed.
	Parse(text string, subrData any) (atom any, consumed int, err error)

	// Process evaluates atom against runtimeUD and returns its value.
	// It is called at most once per atom per Eval/EvalTrack call.
	Process(atom any, runtimeUD any) float64
}

// PrioritySubr is an optional capability: hosts that can estimate the
// relative cost of an atom implement it so the priority engine can
// schedule cheap atoms first. Higher values mean cheaper.
type PrioritySubr interface {
	Priority(atom any) int
}

// DestroySubr is an optional capability for hosts whose atoms own
// resources that must be released when a Handle is closed.
type DestroySubr interface {
	Destroy(atom any)
}

// MaxPriority is the static priority awarded to an atom whose host does
// not implement PrioritySubr, and the ceiling subtracted from when it
// does (see priority.go).
const MaxPriority = 1 << 20

// atomSlot is the per-atom bookkeeping record embedded in a node.
type atomSlot struct {
	value    any     // opaque atom returned by Subr.Parse
	text     string  // original substring, borrowed from the input
	hits     uint64  // non-zero results since the last priority reset
	avgTicks float64 // exponentially-recurring mean runtime, seconds
}
