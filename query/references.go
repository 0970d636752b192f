package query

import (
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
)

// References implements textDocument/references (spec.md §4.F): collects
// every occurrence of the resolved symbol in the live document, extending
// across the workspace for global/autoload symbols.
func (c *Context) References(pos protocol.Position, includeDeclaration bool) []protocol.Location {
	n, ok := c.identifierAt(pos)
	if !ok {
		return nil
	}
	raw := n.Text()
	scope, name := scopedName(raw)
	sym := c.resolveLocal(scope, name)

	var out []protocol.Location
	for _, r := range c.Table.References {
		if r.Scope != scope || r.Name != name {
			continue
		}
		out = append(out, protocol.Location{URI: c.URI, Range: r.Range})
	}
	if sym != nil && includeDeclaration {
		out = append(out, protocol.Location{URI: c.URI, Range: sym.NameRange})
	}

	if isCrossFileScope(scope) && c.Index != nil {
		for _, other := range c.Index.Lookup(scope, name) {
			if other.URI == c.URI {
				continue
			}
			out = append(out, protocol.Location{URI: other.URI, Range: other.Symbol.NameRange})
		}
	}
	return out
}

func isCrossFileScope(s symbols.Scope) bool {
	return s == symbols.ScopeGlobal || s == symbols.ScopeUnscoped
}
