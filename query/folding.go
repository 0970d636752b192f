package query

import (
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/syntax"
)

// foldableKinds is the set of block kinds that each produce one folding
// region (spec.md §4.F).
var foldableKinds = map[syntax.Kind]bool{
	syntax.KindFunction: true,
	syntax.KindIf:       true,
	syntax.KindFor:      true,
	syntax.KindWhile:    true,
	syntax.KindTry:      true,
	syntax.KindAugroup:  true,
}

// FoldingRanges implements textDocument/foldingRange (spec.md §4.F): one
// region per function/if/for/while/try/augroup block, kind "region",
// spanning from the header line to the block's end line.
func (c *Context) FoldingRanges() []protocol.FoldingRange {
	var out []protocol.FoldingRange
	var walk func(n syntax.Node)
	walk = func(n syntax.Node) {
		if foldableKinds[n.Kind()] {
			rng := n.Range()
			if rng.End.Line > rng.Start.Line {
				out = append(out, protocol.FoldingRange{
					StartLine: rng.Start.Line,
					EndLine:   rng.End.Line,
					Kind:      protocol.FoldingRegion,
				})
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(c.Tree.Root())
	return out
}
