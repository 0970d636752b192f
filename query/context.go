// Package query implements the position-based resolvers spec.md §4.F
// describes: hover, definition, completion, references, signature help,
// document highlight, document/workspace symbols, folding, and selection
// range. Every resolver takes a (document, position) pair and returns the
// LSP response shape directly; "no result" is always an empty value, never
// an error (spec.md §4.F, §7).
package query

import (
	"strings"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
	"hjkls.dev/hjkls/workspace"
)

// Context bundles one document's current, consistent snapshot — buffer,
// tree, and symbol table are always taken together so a resolver never
// mixes state from two different edits (spec.md §5 "Queries referencing
// document version V are answered against state at or after V").
type Context struct {
	URI   string
	Buf   *buffer.Buffer
	Tree  *syntax.Tree
	Table *symbols.Table
	Index *workspace.Index // nil when no workspace is configured
}

// nodeAt returns the smallest node in tree whose byte range contains
// offset, descending through named children.
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

// identifierAt returns the identifier-like node at pos, if any.
func (c *Context) identifierAt(pos protocol.Position) (syntax.Node, bool) {
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

// enclosingFunction walks up from n to the nearest function_definition.
func enclosingFunction(n syntax.Node) (syntax.Node, bool) {
	cur := n
	for {
		p, ok := cur.Parent()
		if !ok {
			return syntax.Node{}, false
		}
		if p.Kind() == syntax.KindFunction {
			return p, true
		}
		cur = p
	}
}

// scopedName splits a raw identifier's text into (scope, name), mirroring
// symbols.scopedName without importing its unexported helper.
func scopedName(raw string) (symbols.Scope, string) {
	if i := strings.IndexByte(raw, ':'); i == 1 {
		switch raw[:1] {
		case "s", "g", "b", "w", "t", "l", "a", "v":
			return symbols.Scope(raw[:1]), raw[i+1:]
		}
	}
	return symbols.ScopeUnscoped, raw
}

// resolveLocal resolves (scope, name) against the document's own table.
func (c *Context) resolveLocal(scope symbols.Scope, name string) *symbols.Symbol {
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
