package rexpr

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ToText renders the Handle's AST back to canonical text: a flat
// post-order emission, one token per node, space-separated, with the
// trailing space trimmed.
func (h *Handle) ToText() string {
	var nodes []*node
	h.postOrder(h.root, func(n *node) {
		nodes = append(nodes, n)
	})
	tokens := lo.Map(nodes, func(n *node, _ int) string {
		return h.renderNode(n)
	})
	return strings.Join(tokens, " ")
}

func (h *Handle) renderNode(n *node) string {
	switch n.kind {
	case nodeAtom:
		return "(" + n.atom.text + ")"
	case nodeLimit:
		return renderLimit(n.lim)
	default:
		sym := n.op.symbol()
		if len(n.children) > 2 {
			return fmt.Sprintf("%s (%d)", sym, len(n.children))
		}
		return sym
	}
}

func renderLimit(v float64) string {
	if i := int64(v); float64(i) == v {
		return fmt.Sprintf("%d", i)
	}
	return fmt.Sprintf("%f", v)
}
