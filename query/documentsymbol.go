package query

import (
	"strings"

	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
)

// DocumentSymbols implements textDocument/documentSymbol (spec.md §4.F): a
// flat list of top-level functions and variables with their ranges.
func (c *Context) DocumentSymbols() []protocol.DocumentSymbol {
	var out []protocol.DocumentSymbol
	for _, fn := range c.Table.Functions {
		out = append(out, protocol.DocumentSymbol{
			Name:           scopePrefix(fn.Scope) + fn.Name,
			Kind:           protocol.SymbolKindFunction,
			Range:          fn.DefRange,
			SelectionRange: fn.NameRange,
			Detail:         signatureText(fn),
		})
	}
	for _, v := range c.Table.Variables {
		if v.Parent != nil {
			continue // locals are not top-level document symbols
		}
		out = append(out, protocol.DocumentSymbol{
			Name:           variableName(v),
			Kind:           documentSymbolKind(v),
			Range:          v.DefRange,
			SelectionRange: v.NameRange,
		})
	}
	return out
}

// variableName renders a variable with the scope prefix it is written with;
// unlike scopePrefix, it keeps "g:" on global variables.
func variableName(v *symbols.Symbol) string {
	if v.Scope == symbols.ScopeUnscoped {
		return v.Name
	}
	return string(v.Scope) + ":" + v.Name
}

// documentSymbolKind tags a dict-field symbol ("obj.method") as a method,
// the experimental case SPEC_FULL.md §12.3 keeps workspace-searchable.
func documentSymbolKind(v *symbols.Symbol) int {
	if v.Scope == symbols.ScopeUnscoped && strings.Contains(v.Name, ".") {
		return protocol.SymbolKindMethod
	}
	return protocol.SymbolKindVariable
}
