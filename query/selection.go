package query

import (
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/syntax"
)

// SelectionRange implements textDocument/selectionRange (spec.md §4.F): the
// chain of ancestor nodes containing pos, innermost first, up to the root.
// The invariant spec.md §8 requires — the innermost node is the unique
// minimum-byte-width node containing pos — follows from nodeAt always
// descending into the smallest enclosing named child.
func (c *Context) SelectionRange(pos protocol.Position) *protocol.SelectionRange {
	offset := c.Buf.Offset(pos)
	n := nodeAt(c.Tree.Root(), offset)
	if !n.Valid() {
		return nil
	}

	var chain []syntax.Node
	for cur := n; cur.Valid(); {
		chain = append(chain, cur)
		p, ok := cur.Parent()
		if !ok {
			break
		}
		cur = p
	}

	var head *protocol.SelectionRange
	var tail *protocol.SelectionRange
	for _, node := range chain {
		sr := &protocol.SelectionRange{Range: node.Range()}
		if head == nil {
			head = sr
		} else {
			tail.Parent = sr
		}
		tail = sr
	}
	return head
}
