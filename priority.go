package rexpr

import (
	"sort"

	"github.com/samber/lo"
)

// assignPriorities runs the static-priority pass, post-order: Limit
// nodes get 0, atoms get MaxPriority minus the host's reported cost (or
// MaxPriority outright when PrioritySubr isn't implemented), and Op
// nodes get the sum of their children's priorities. This pass never
// touches hits/avgTicks — see resortChildren for why that reset is kept
// separate from priority assignment and from the sort comparator. Atom
// nonces are drawn only on the build-time pass (before any Eval), so they
// stay fixed across periodic resorts.
func (h *Handle) assignPriorities() {
	h.postOrder(h.root, func(n *node) {
		switch n.kind {
		case nodeLimit:
			n.priority = 0
		case nodeAtom:
			n.priority = h.atomPriority(n.atom.value)
			if h.evals == 0 {
				n.nonce = h.rng.Uint32()
			}
		case nodeOp:
			n.priority = int32(lo.SumBy(n.children, func(c int32) int {
				return int(h.arena[c].priority)
			}))
		}
	})
}

func (h *Handle) atomPriority(atom any) int32 {
	if p, ok := h.subr.(PrioritySubr); ok {
		return int32(MaxPriority - p.Priority(atom))
	}
	return MaxPriority
}

// resortAll re-sorts every Op node's children, post-order.
func (h *Handle) resortAll() {
	h.postOrder(h.root, func(n *node) {
		if n.kind == nodeOp {
			h.resortChildren(n)
		}
	})
}

// resortChildren sorts n's children by a compound key: Limit first, then
// (for atoms of equal static priority) descending dynamic weight, then
// ascending static priority. The comparator is a pure total order — it
// reads hits/avgTicks but never writes them. Atoms whose dynamic weight
// was actually consulted (i.e. tied with a sibling on static priority)
// have their learning window reset in a dedicated pass that runs only
// after the sort has fully committed, so the ordering decision itself
// can never observe a mutation mid-sort.
func (h *Handle) resortChildren(n *node) {
	consulted := make(map[int32]bool)

	sort.SliceStable(n.children, func(i, j int) bool {
		return h.priorityLess(n.children[i], n.children[j], consulted)
	})

	for idx := range consulted {
		a := h.arena[idx].atom
		a.hits = 0
		a.avgTicks = 0
	}
}

func (h *Handle) priorityLess(i, j int32, consulted map[int32]bool) bool {
	ni, nj := &h.arena[i], &h.arena[j]

	iLimit := ni.kind == nodeLimit
	jLimit := nj.kind == nodeLimit
	if iLimit || jLimit {
		return iLimit && !jLimit
	}

	if ni.kind == nodeAtom && nj.kind == nodeAtom && ni.priority == nj.priority {
		consulted[i] = true
		consulted[j] = true
		wi := dynamicWeight(ni.atom)
		wj := dynamicWeight(nj.atom)
		if wi != wj {
			return wi > wj
		}
		return false
	}

	return ni.priority < nj.priority
}

// dynamicWeight is hits / (avgTicks*1e7 when avgTicks>0, else 1): hits
// per unit of runtime, so a larger weight means a lower cost per hit and
// sorts first. Callers compare the float weights directly rather
// than subtracting and truncating to an int, which would silently
// underflow for two close weights — see priorityLess above.
func dynamicWeight(a *atomSlot) float64 {
	denom := 1.0
	if a.avgTicks > 0 {
		denom = a.avgTicks * 1e7
	}
	return float64(a.hits) / denom
}

// drawNextResort redraws the evaluation count at which the next
// periodic resort fires, uniformly from [minResort, minResort+maxResort).
func (h *Handle) drawNextResort() uint64 {
	return h.minResort + h.rng.Uint64()%h.maxResort
}
