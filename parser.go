package rexpr

import (
	"fmt"
	mathrand "math/rand/v2"
)

// parser holds the shunting-yard scratch state for one Parse call: an
// operand stack of arena indices and a separate operator
// stack, built up in a single pass over the input with no backtracking.
type parser struct {
	h        *Handle
	lex      lexer
	subr     Subr
	subrData any

	operands []int32
	opStack  []Operator
}

// Parse builds a Handle from input, delegating atom recognition to
// subr. It runs the shunting-yard algorithm: atoms and limits become
// operand-stack leaves, operators are pushed and popped by precedence,
// attach performs n-ary flattening of associative operators, and on
// success the engine runs priority assignment and an initial resort
// before returning.
func Parse(input string, subr Subr, subrData any, opts ...Option) (h *Handle, err error) {
	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	rng := cfg.rng
	if rng == nil {
		rng = mathrand.New(mathrand.NewPCG(mathrand.Uint64(), mathrand.Uint64()))
	}

	h = &Handle{
		subr:       subr,
		subrData:   subrData,
		minResort:  cfg.minResort,
		maxResort:  cfg.maxResort,
		sampleMask: cfg.sampleInv - 1,
		rng:        rng,
		log:        cfg.logger,
	}

	p := &parser{h: h, lex: lexer{s: input}, subr: subr, subrData: subrData}

	// The host's Parse callback is the one boundary this package does not
	// fully control; a panic there is reported as an AtomParseFailed
	// rather than escaping to the caller.
	defer func() {
		if r := recover(); r != nil {
			h = nil
			err = mkErr(AtomParseFailed, p.lex.pos, fmt.Sprintf("host Parse panicked: %v", r))
		}
	}()

	if perr := p.run(); perr != nil {
		return nil, perr
	}

	h.root = p.operands[0]
	h.assignPriorities()
	h.resortAll()
	h.nextResort = h.drawNextResort()
	h.log.Debug().Int("nodes", len(h.arena)).Uint64("next_resort", h.nextResort).Msg("parsed expression")
	return h, nil
}

func (p *parser) comparisonOnTop() bool {
	if len(p.opStack) == 0 {
		return false
	}
	return p.opStack[len(p.opStack)-1].comparison()
}

func (p *parser) run() error {
	expectOperand := true

	for {
		p.lex.skipSpace()
		if p.lex.eof() {
			break
		}
		pos := p.lex.pos
		b := p.lex.s[pos]

		switch {
		case expectOperand && p.comparisonOnTop():
			v, width, ok := p.lex.matchLimit()
			if !ok {
				return mkErr(EmptyLimit, pos, "")
			}
			p.pushLimit(v)
			p.lex.pos += width
			expectOperand = false

		case b == '(':
			p.opStack = append(p.opStack, opBrace)
			p.lex.pos++
			// expectOperand stays true

		case b == ')':
			if err := p.closeBrace(); err != nil {
				return err
			}
			p.lex.pos++
			expectOperand = false

		default:
			if op, width, ok := p.lex.matchOperator(); ok {
				if op.unary() {
					if !expectOperand {
						return mkErr(BadOperator, pos, "unary operator in infix position")
					}
					p.opStack = append(p.opStack, op)
					p.lex.pos += width
					// expectOperand stays true
					continue
				}
				if expectOperand {
					// A binary operator's bytes (symbolic or keyword) are never
					// atom-eligible text, regardless of where they appear, so
					// finding one where an atom was expected is indistinguishable
					// from the atom parser finding nothing at all here.
					return mkErr(AtomParseFailed, pos, "operator token where an atom was expected")
				}
				if err := p.pushOperator(op); err != nil {
					return err
				}
				p.lex.pos += width
				expectOperand = true
				continue
			}

			if !expectOperand {
				return mkErr(BadOperator, pos, "expected an operator")
			}
			if isOperatorByte(b) {
				return mkErr(BadOperator, pos, "unrecognised operator")
			}

			atom, consumed, err := p.subr.Parse(p.lex.s[pos:], p.subrData)
			if err != nil || consumed <= 0 {
				return mkErr(AtomParseFailed, pos, errDetail(err))
			}
			p.pushAtom(atom, p.lex.s[pos:pos+consumed])
			p.lex.pos += consumed
			expectOperand = false
		}
	}

	for len(p.opStack) > 0 {
		top := p.opStack[len(p.opStack)-1]
		p.opStack = p.opStack[:len(p.opStack)-1]
		if top == opBrace {
			return mkErr(BraceMismatch, len(p.lex.s), "unbalanced '('")
		}
		if err := p.attach(top); err != nil {
			return err
		}
	}

	if len(p.operands) != 1 {
		return mkErr(OperatorMismatch, len(p.lex.s), fmt.Sprintf("%d operands remain", len(p.operands)))
	}
	return nil
}

// pushOperator pops and attaches operators while the stack's top is not
// an open brace and binds strictly tighter than op, then pushes op.
func (p *parser) pushOperator(op Operator) error {
	for len(p.opStack) > 0 {
		top := p.opStack[len(p.opStack)-1]
		if top == opBrace {
			break
		}
		if op.precedence() >= top.precedence() {
			break
		}
		p.opStack = p.opStack[:len(p.opStack)-1]
		if err := p.attach(top); err != nil {
			return err
		}
	}
	p.opStack = append(p.opStack, op)
	return nil
}

// closeBrace pops and attaches operators until an open brace is found
// and discarded; BraceMismatch if the stack empties first.
func (p *parser) closeBrace() error {
	for {
		if len(p.opStack) == 0 {
			return mkErr(BraceMismatch, p.lex.pos, "unbalanced ')'")
		}
		top := p.opStack[len(p.opStack)-1]
		p.opStack = p.opStack[:len(p.opStack)-1]
		if top == opBrace {
			return nil
		}
		if err := p.attach(top); err != nil {
			return err
		}
	}
}

// attach performs the n-ary flattening step: a fresh binary node is only
// allocated when neither popped operand already carries the same
// flattenable operator; otherwise the new operand joins the existing
// node's children in the correct position.
func (p *parser) attach(op Operator) error {
	h := p.h

	if op.unary() {
		if len(p.operands) < 1 {
			return mkErr(UnaryMissingOperand, p.lex.pos, "")
		}
		a := p.operands[len(p.operands)-1]
		p.operands = p.operands[:len(p.operands)-1]

		idx := h.newNode(nodeOp)
		h.arena[idx].op = op
		h.arena[idx].children = []int32{a}
		h.arena[a].parent = idx
		p.operands = append(p.operands, idx)
		return nil
	}

	if len(p.operands) < 2 {
		return mkErr(BinaryMissingOperand, p.lex.pos, "")
	}
	a2 := p.operands[len(p.operands)-1]
	a1 := p.operands[len(p.operands)-2]
	p.operands = p.operands[:len(p.operands)-2]

	if op.flattenable() {
		if n1 := &h.arena[a1]; n1.kind == nodeOp && n1.op == op {
			n1.children = append(n1.children, a2)
			h.arena[a2].parent = a1
			p.operands = append(p.operands, a1)
			return nil
		}
		if n2 := &h.arena[a2]; n2.kind == nodeOp && n2.op == op {
			n2.children = append([]int32{a1}, n2.children...)
			h.arena[a1].parent = a2
			p.operands = append(p.operands, a2)
			return nil
		}
	}

	idx := h.newNode(nodeOp)
	h.arena[idx].op = op
	if op.comparison() {
		// The grammar only ever admits a bare Limit immediately after a
		// comparison operator (comparisonOnTop gates matchLimit), so a2
		// here is always that Limit and a1 the left-hand expression.
		// Every comparison node's first child must be its Limit (the
		// evaluator's combine/nodeDone logic, and any parent's
		// plus-beneath-comparison lookup, both depend on that order).
		h.arena[idx].children = []int32{a2, a1}
	} else {
		h.arena[idx].children = []int32{a1, a2}
	}
	h.arena[a1].parent = idx
	h.arena[a2].parent = idx
	p.operands = append(p.operands, idx)
	return nil
}

func (p *parser) pushAtom(value any, text string) {
	idx := p.h.newNode(nodeAtom)
	p.h.arena[idx].atom = &atomSlot{value: value, text: text}
	p.operands = append(p.operands, idx)
}

func (p *parser) pushLimit(v float64) {
	idx := p.h.newNode(nodeLimit)
	p.h.arena[idx].lim = v
	p.operands = append(p.operands, idx)
}

func (h *Handle) newNode(kind nodeKind) int32 {
	h.arena = append(h.arena, node{kind: kind, parent: noParent})
	return int32(len(h.arena) - 1)
}

func mkErr(kind ParseErrorKind, offset int, detail string) error {
	return parseErr(kind, offset, detail)
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
