// Package refactor implements textDocument/rename and textDocument/codeAction
// (spec.md §4.H): renaming a resolved symbol across the open document and
// every workspace location the index already knows about, and per-diagnostic
// quick fixes for the style rules the diagnostic engine flags. Both build on
// the same "reject what can't be renamed/fixed safely" pattern
// go-dws-lsp's rename.go uses: check the target first, collect edits second,
// never partially apply a change.
package refactor

import (
	"fmt"

	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
	"hjkls.dev/hjkls/symbols"
)

// PrepareRename reports whether the identifier at pos can be renamed, and
// its current range if so (textDocument/prepareRename).
func PrepareRename(c *query.Context, pos protocol.Position) (protocol.Range, bool) {
	sym, _, ok := resolveRenameTarget(c, pos)
	if !ok {
		return protocol.Range{}, false
	}
	return sym.NameRange, true
}

// Rename implements textDocument/rename: replace every occurrence of the
// identifier at pos with newName, across the document and, for global or
// autoload-qualified symbols, every other workspace document the index has
// already parsed.
func Rename(c *query.Context, pos protocol.Position, newName string) (protocol.WorkspaceEdit, error) {
	sym, scope, ok := resolveRenameTarget(c, pos)
	if !ok {
		return protocol.WorkspaceEdit{}, fmt.Errorf("no renameable symbol at position")
	}
	if reason, bad := rejectRename(sym, newName); bad {
		return protocol.WorkspaceEdit{}, fmt.Errorf("cannot rename %q: %s", sym.Name, reason)
	}

	edits := map[string][]protocol.TextEdit{}
	addEdit(edits, c.URI, sym.NameRange, newName)
	for _, r := range c.Table.References {
		if r.Scope != scope || r.Name != sym.Name {
			continue
		}
		addEdit(edits, c.URI, r.Range, newName)
	}

	if isCrossFileScope(scope) && c.Index != nil {
		for _, other := range c.Index.Lookup(scope, sym.Name) {
			if other.URI == c.URI {
				continue
			}
			addEdit(edits, other.URI, other.Symbol.NameRange, newName)
		}
	}

	return protocol.WorkspaceEdit{Changes: edits}, nil
}

func isCrossFileScope(s symbols.Scope) bool {
	return s == symbols.ScopeGlobal || s == symbols.ScopeUnscoped
}

// resolveRenameTarget finds the symbol the identifier at pos refers to,
// either as its own definition or via a resolved reference.
func resolveRenameTarget(c *query.Context, pos protocol.Position) (*symbols.Symbol, symbols.Scope, bool) {
	n, ok := identifierAt(c, pos)
	if !ok {
		return nil, "", false
	}
	scope, name := splitScoped(n.Text())
	if sym := lookupLocal(c, scope, name); sym != nil {
		return sym, scope, true
	}
	return nil, "", false
}

// rejectRename mirrors go-dws-lsp's canRenameSymbol: a builtin name can
// never be renamed, and the new name must itself be a legal identifier
// (optionally behind a scope prefix such as "s:"), not an existing builtin.
func rejectRename(sym *symbols.Symbol, newName string) (reason string, reject bool) {
	if newName == "" {
		return "new name is empty", true
	}
	if _, bare := splitScoped(newName); !isValidIdentifier(bare) {
		return "new name is not a valid Vim script identifier", true
	}
	if _, ok := builtins.Lookup(newName); ok {
		return "new name shadows a builtin function", true
	}
	return "", false
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func addEdit(edits map[string][]protocol.TextEdit, uri string, rng protocol.Range, newText string) {
	edits[uri] = append(edits[uri], protocol.TextEdit{Range: rng, NewText: newText})
}
