package rexpr

import "testing"

func TestMatchOperator(t *testing.T) {
	cases := []struct {
		input string
		op    Operator
		width int
		ok    bool
	}{
		{"(a", opBrace, 1, true},
		{"!a", Not, 1, true},
		{"+ 5", Plus, 1, true},
		{"* 5", Mult, 1, true},
		{"& b", And, 1, true},
		{"&& b", And, 2, true},
		{"| b", Or, 1, true},
		{"|| b", Or, 2, true},
		{">= 5", Ge, 2, true},
		{"> 5", Gt, 1, true},
		{"<= 5", Le, 2, true},
		{"< 5", Lt, 1, true},
		{"and b", And, 3, true},
		{"or b", Or, 2, true},
		{"not b", Not, 3, true},
		{"AND b", And, 3, true},
		{"andb", 0, 0, false},
		{"xyz", 0, 0, false},
		{"!:foo", 0, 0, false}, // colon disqualifies
		{"&:foo", 0, 0, false},
	}
	for _, c := range cases {
		l := lexer{s: c.input}
		op, width, ok := l.matchOperator()
		if ok != c.ok {
			t.Errorf("matchOperator(%q) ok = %v, want %v", c.input, ok, c.ok)
			continue
		}
		if !ok {
			continue
		}
		if op != c.op || width != c.width {
			t.Errorf("matchOperator(%q) = (%s, %d), want (%s, %d)", c.input, op, width, c.op, c.width)
		}
	}
}

func TestMatchLimitBoundary(t *testing.T) {
	cases := []struct {
		input string
		val   float64
		width int
		ok    bool
	}{
		{"5", 5, 1, true},
		{"5)", 5, 1, true},
		{"5 ", 5, 1, true},
		{"5.5", 5.5, 3, true},
		{"-5", -5, 2, true},
		{"+5", 5, 2, true},
		{".5", 0.5, 2, true},
		{"5.", 0, 0, false},
		{".", 0, 0, false},
		{"-", 0, 0, false},
		{"5a", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		l := lexer{s: c.input}
		val, width, ok := l.matchLimit()
		if ok != c.ok {
			t.Errorf("matchLimit(%q) ok = %v, want %v", c.input, ok, c.ok)
			continue
		}
		if !ok {
			continue
		}
		if val != c.val || width != c.width {
			t.Errorf("matchLimit(%q) = (%g, %d), want (%g, %d)", c.input, val, width, c.val, c.width)
		}
	}
}

func TestKeywordOperatorRequiresTrailingByte(t *testing.T) {
	l := lexer{s: "and"}
	if _, _, ok := l.matchOperator(); ok {
		t.Error("a keyword flush against end of input should not match as an operator")
	}
}
