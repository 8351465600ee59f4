package rexpr

import (
	"math/rand/v2"

	"github.com/rs/zerolog"
)

// Default resort window: next_resort is redrawn uniformly from
// [defaultMinResortEvals, defaultMinResortEvals+defaultMaxResortEvals),
// both at parse time and periodically during evaluation.
const (
	defaultMinResortEvals = 50
	defaultMaxResortEvals = 150

	// defaultSampleMask selects roughly 1 call in 32 for runtime timing.
	defaultSampleMask = 0x1F
)

// Handle owns a built AST: its node arena, the host vtable binding, and
// the adaptive-learning state (call counter, resort schedule, PRNG). A
// Handle is not safe for concurrent use; distinct goroutines must use
// distinct handles.
type Handle struct {
	subr     Subr
	subrData any

	arena []node
	root  int32

	evals      uint64
	nextResort uint64
	minResort  uint64
	maxResort  uint64
	sampleMask uint32

	rng    *rand.Rand
	log    zerolog.Logger
	closed bool
}

// Option configures a Handle at Parse time.
type Option func(*handleConfig)

type handleConfig struct {
	logger    zerolog.Logger
	rng       *rand.Rand
	minResort uint64
	maxResort uint64
	sampleInv uint32 // 1-in-N sample rate; converted to a power-of-two mask
}

func newConfig() *handleConfig {
	return &handleConfig{
		logger:    zerolog.Nop(),
		minResort: defaultMinResortEvals,
		maxResort: defaultMaxResortEvals,
		sampleInv: defaultSampleMask + 1,
	}
}

// WithLogger attaches a zerolog.Logger the Handle uses for Debug-level
// resort-cadence messages and Trace-level atom dispatch. The zero value
// (omitting this option) keeps the Handle silent.
func WithLogger(l zerolog.Logger) Option {
	return func(c *handleConfig) { c.logger = l }
}

// WithResortWindow overrides the [min, min+max) range next_resort is
// drawn from. Both must be positive.
func WithResortWindow(min, max uint64) Option {
	return func(c *handleConfig) {
		if min > 0 {
			c.minResort = min
		}
		if max > 0 {
			c.maxResort = max
		}
	}
}

// WithSampleRate overrides the 1-in-N runtime-sampling rate. n must be a
// power of two; non-power-of-two values are rounded down to the nearest
// one (minimum 1, meaning every call is timed).
func WithSampleRate(n uint32) Option {
	return func(c *handleConfig) {
		if n == 0 {
			n = 1
		}
		c.sampleInv = 1 << (31 - leadingZeros32(n))
	}
}

// WithRand overrides the PRNG driving resort jitter and node nonces,
// letting tests fix a seed for deterministic resort schedules.
func WithRand(r *rand.Rand) Option {
	return func(c *handleConfig) { c.rng = r }
}

func leadingZeros32(x uint32) int {
	n := 0
	for i := 31; i >= 0; i-- {
		if x&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// Close runs the host's Destroy callback (when implemented) over every
// atom in post-order, then marks the Handle closed. Close is idempotent:
// a second call is a no-op. Closing is optional — the arena is ordinary
// Go memory and is reclaimed by the garbage collector regardless; Close
// exists only to give hosts with atom-owned resources a deterministic
// cleanup hook.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	destroyer, ok := h.subr.(DestroySubr)
	if !ok {
		return nil
	}
	h.postOrder(h.root, func(n *node) {
		if n.kind == nodeAtom {
			destroyer.Destroy(n.atom.value)
		}
	})
	return nil
}

// ForEachAtom walks the AST in post-order, calling visit with each
// atom's recorded substring.
func (h *Handle) ForEachAtom(visit func(text string)) {
	h.postOrder(h.root, func(n *node) {
		if n.kind == nodeAtom {
			visit(n.atom.text)
		}
	})
}

func (h *Handle) postOrder(idx int32, visit func(*node)) {
	if idx == noParent {
		return
	}
	n := &h.arena[idx]
	for _, c := range n.children {
		h.postOrder(c, visit)
	}
	visit(n)
}
