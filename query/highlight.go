package query

import "hjkls.dev/hjkls/protocol"

// DocumentHighlight implements textDocument/documentHighlight (spec.md
// §4.F): same resolution as References but restricted to the current file,
// with the definition occurrence marked Write and every other occurrence
// marked Read.
func (c *Context) DocumentHighlight(pos protocol.Position) []protocol.DocumentHighlight {
	n, ok := c.identifierAt(pos)
	if !ok {
		return nil
	}
	raw := n.Text()
	scope, name := scopedName(raw)
	sym := c.resolveLocal(scope, name)

	var out []protocol.DocumentHighlight
	if sym != nil {
		out = append(out, protocol.DocumentHighlight{Range: sym.NameRange, Kind: protocol.HighlightWrite})
	}
	for _, r := range c.Table.References {
		if r.Scope != scope || r.Name != name {
			continue
		}
		out = append(out, protocol.DocumentHighlight{Range: r.Range, Kind: protocol.HighlightRead})
	}
	return out
}
