package query

import (
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/workspace"
)

// WorkspaceSymbols implements workspace/symbol (spec.md §4.F): a query over
// the workspace index's fuzzy/substring search, case-insensitive, with
// prefix matches ranked ahead of fuzzy ones (workspace.Index.Search already
// establishes that ordering; this just adapts the result shape).
func WorkspaceSymbols(idx *workspace.Index, query string) []protocol.WorkspaceSymbol {
	if idx == nil {
		return nil
	}
	results := idx.Search(query)
	out := make([]protocol.WorkspaceSymbol, 0, len(results))
	for _, r := range results {
		out = append(out, protocol.WorkspaceSymbol{
			Name:     scopePrefix(r.Symbol.Scope) + r.Symbol.Name,
			Kind:     workspaceSymbolKind(r.Symbol),
			Location: protocol.Location{URI: r.URI, Range: r.Symbol.NameRange},
		})
	}
	return out
}

func workspaceSymbolKind(s *symbols.Symbol) int {
	switch s.Kind {
	case symbols.KindFunction, symbols.KindAutoloadFunction:
		return protocol.SymbolKindFunction
	default:
		return documentSymbolKind(s)
	}
}
