package rexpr_test

import (
	"math/rand/v2"

	"github.com/cbarrick/rexpr"
)

// mapSubr is a Subr backed by a fixed name->value table. Atom text is a
// run of letters/digits/underscore. Unbound names evaluate to 0, same
// as cmd/rexprctl's identitySubr.
type mapSubr struct {
	values map[string]float64
}

func newMapSubr(values map[string]float64) mapSubr {
	return mapSubr{values: values}
}

func (s mapSubr) Parse(text string, _ any) (any, int, error) {
	n := 0
	for n < len(text) && isIdentByte(text[n]) {
		n++
	}
	if n == 0 {
		return nil, 0, errAtom{text}
	}
	return text[:n], n, nil
}

func (s mapSubr) Process(atom any, _ any) float64 {
	return s.values[atom.(string)]
}

type errAtom struct{ text string }

func (e errAtom) Error() string { return "no atom at " + e.text }

func isIdentByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '_':
		return true
	default:
		return false
	}
}

// seededRand returns a PRNG with a fixed seed, for tests that need
// deterministic resort jitter.
func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func mustParse(values map[string]float64, input string, opts ...rexpr.Option) *rexpr.Handle {
	h, err := rexpr.Parse(input, newMapSubr(values), nil, opts...)
	if err != nil {
		panic(err)
	}
	return h
}
