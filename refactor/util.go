package refactor

import (
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

// nodeAt and identifierAt duplicate query's unexported position-lookup
// helpers; query.Context exposes Buf/Tree/Table directly so refactor can
// rebuild the same lookup without a second entry point into that package.
func nodeAt(n syntax.Node, offset int) syntax.Node {
	for {
		var next syntax.Node
		found := false
		for i := 0; i < n.NamedChildCount(); i++ {
			c := n.NamedChild(i)
			start, end := c.ByteRange()
			if start <= offset && offset <= end {
				next = c
				found = true
				break
			}
		}
		if !found {
			return n
		}
		n = next
	}
}

func identifierAt(c *query.Context, pos protocol.Position) (syntax.Node, bool) {
	offset := c.Buf.Offset(pos)
	n := nodeAt(c.Tree.Root(), offset)
	for n.Valid() {
		switch n.Kind() {
		case syntax.KindIdentifier, syntax.KindScopedIdent:
			return n, true
		}
		p, ok := n.Parent()
		if !ok {
			break
		}
		n = p
	}
	return syntax.Node{}, false
}

// splitScoped mirrors symbols.scopedName without importing its unexported
// form.
func splitScoped(raw string) (symbols.Scope, string) {
	if len(raw) > 1 && raw[1] == ':' {
		switch raw[:1] {
		case "s", "g", "b", "w", "t", "l", "a", "v":
			return symbols.Scope(raw[:1]), raw[2:]
		}
	}
	return symbols.ScopeUnscoped, raw
}

func lookupLocal(c *query.Context, scope symbols.Scope, name string) *symbols.Symbol {
	if syms := c.Table.Lookup(scope, name); len(syms) > 0 {
		return syms[len(syms)-1]
	}
	if scope == symbols.ScopeUnscoped {
		if syms := c.Table.Lookup(symbols.ScopeGlobal, name); len(syms) > 0 {
			return syms[len(syms)-1]
		}
	}
	return nil
}
