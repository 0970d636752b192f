package query

import (
	"strings"

	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
)

// Definition implements textDocument/definition (spec.md §4.F). Builtin
// calls return no definition; autoload calls return the expected file path
// even if the target hasn't been parsed yet.
func (c *Context) Definition(pos protocol.Position) []protocol.Location {
	n, ok := c.identifierAt(pos)
	if !ok {
		return nil
	}
	raw := n.Text()
	scope, name := scopedName(raw)

	if _, ok := builtins.Lookup(name); ok {
		return nil
	}

	if strings.Contains(raw, "#") {
		if c.Index == nil {
			return nil
		}
		if path, sym, found := c.Index.LookupAutoload(raw); found {
			rng := protocol.Range{}
			if sym != nil {
				rng = sym.NameRange
			}
			return []protocol.Location{{URI: "file://" + path, Range: rng}}
		}
		return nil
	}

	if sym := c.resolveLocal(scope, name); sym != nil {
		return []protocol.Location{{URI: c.URI, Range: sym.NameRange}}
	}

	if c.Index != nil {
		if refs := c.Index.Lookup(scope, name); len(refs) > 0 {
			var out []protocol.Location
			for _, r := range refs {
				out = append(out, protocol.Location{URI: r.URI, Range: r.Symbol.NameRange})
			}
			return out
		}
	}
	return nil
}
