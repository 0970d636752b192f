// Package syntax wraps the external Vim-script tree-sitter grammar behind
// the node model spec.md §3 describes: an ordered tree of typed nodes with
// byte and row/column ranges, parent/child links, and an error/missing flag.
//
// Everything outside this package talks to [Tree] and [Node], never to the
// tree-sitter API directly — the same way shinyvision/vimfony's php package
// hides *sitter.Node behind its own IndexedTree.
package syntax

import (
	"bytes"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
	vimlang "github.com/alexaandru/go-sitter-forest/vim"

	"hjkls.dev/hjkls/protocol"
)

// Kind is the grammar node type tag (function, if, for, call, identifier, ...).
type Kind string

// Node kinds the rest of hjkls switches on. The grammar produces many more
// kinds (operators, punctuation); callers match on these by name via Kind()
// and fall back to treating unrecognized kinds generically.
const (
	KindScript        Kind = "script"
	KindFunction      Kind = "function_definition"
	KindFunctionBody   Kind = "function_definition_body"
	KindIf            Kind = "if_statement"
	KindFor           Kind = "for_statement"
	KindWhile         Kind = "while_statement"
	KindTry           Kind = "try_statement"
	KindAugroup       Kind = "augroup_statement"
	KindAutocmd       Kind = "autocmd_statement"
	KindLet           Kind = "let_statement"
	KindCall          Kind = "call_expression"
	KindIdentifier    Kind = "identifier"
	KindScopedIdent   Kind = "scoped_identifier"
	KindString        Kind = "string_literal"
	KindComment       Kind = "comment"
	KindLambda        Kind = "lambda_expression"
	KindDict          Kind = "dictionary"
	KindDictField     Kind = "dict_access"
	KindNormalCmd     Kind = "normal_statement"
	KindSetCmd        Kind = "set_statement"
	KindMapCmd        Kind = "map_statement"
	KindBinaryExpr    Kind = "binary_expression"
	KindUnaryExpr     Kind = "unary_expression"
	KindVim9Script    Kind = "vim9script_statement"
	KindERROR         Kind = "ERROR"
	KindMISSING       Kind = "MISSING"
)

// Node is a single syntax tree node. The zero Node is not valid; obtain
// nodes from a Tree.
type Node struct {
	tree *Tree
	n    sitter.Node
}

// Kind returns the grammar's type tag for n.
func (n Node) Kind() Kind { return Kind(n.n.Type()) }

// IsError reports whether n is (or contains, per tree-sitter convention, is
// itself) an ERROR node produced by the grammar's error recovery.
func (n Node) IsError() bool { return n.n.IsError() }

// IsMissing reports whether n is a MISSING node synthesized during error
// recovery (the grammar expected a token that was not present).
func (n Node) IsMissing() bool { return n.n.IsMissing() }

// ByteRange returns n's [start, end) byte span within the document.
func (n Node) ByteRange() (start, end int) {
	return int(n.n.StartByte()), int(n.n.EndByte())
}

// Range returns n's span translated to LSP line/character coordinates.
// Tree-sitter reports byte columns; Character is recounted from the source
// as UTF-16 code units.
func (n Node) Range() protocol.Range {
	sp, ep := n.n.StartPoint(), n.n.EndPoint()
	start, end := n.ByteRange()
	utf16Col := func(off int) int {
		src := n.tree.source
		if off > len(src) {
			off = len(src)
		}
		units := 0
		for _, r := range string(src[bytes.LastIndexByte(src[:off], '\n')+1 : off]) {
			if r > 0xFFFF {
				units += 2
			} else {
				units++
			}
		}
		return units
	}
	return protocol.Range{
		Start: protocol.Position{Line: int(sp.Row), Character: utf16Col(start)},
		End:   protocol.Position{Line: int(ep.Row), Character: utf16Col(end)},
	}
}

// Text returns the source text spanned by n.
func (n Node) Text() string {
	start, end := n.ByteRange()
	if start < 0 || end > len(n.tree.source) || start > end {
		return ""
	}
	return string(n.tree.source[start:end])
}

// ChildCount returns the number of direct children of n, named or not.
func (n Node) ChildCount() int { return int(n.n.ChildCount()) }

// Child returns the i'th direct child of n.
func (n Node) Child(i int) Node {
	return Node{tree: n.tree, n: n.n.Child(uint32(i))}
}

// NamedChildCount returns the number of direct named children of n.
func (n Node) NamedChildCount() int { return int(n.n.NamedChildCount()) }

// NamedChild returns the i'th direct named child of n.
func (n Node) NamedChild(i int) Node {
	return Node{tree: n.tree, n: n.n.NamedChild(uint32(i))}
}

// Children returns every direct child of n.
func (n Node) Children() []Node {
	out := make([]Node, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// Parent returns n's parent node, or the zero Node with Valid()==false at
// the root.
func (n Node) Parent() (Node, bool) {
	p := n.n.Parent()
	if p.IsNull() {
		return Node{}, false
	}
	return Node{tree: n.tree, n: p}, true
}

// Valid reports whether n refers to an actual tree-sitter node.
func (n Node) Valid() bool { return !n.n.IsNull() }

// FieldName returns the grammar field name this node occupies in its
// parent, if any ("name", "body", "parameters", ...).
func (n Node) FieldName() string {
	p, ok := n.Parent()
	if !ok {
		return ""
	}
	for i := 0; i < p.ChildCount(); i++ {
		if p.n.Child(uint32(i)).Equal(n.n) {
			return p.n.FieldNameForChild(uint32(i))
		}
	}
	return ""
}

// ChildByFieldName returns the child of n occupying the named grammar field.
func (n Node) ChildByFieldName(name string) (Node, bool) {
	c := n.n.ChildByFieldName(name)
	if c.IsNull() {
		return Node{}, false
	}
	return Node{tree: n.tree, n: c}, true
}

// Tree is a parsed Vim-script document, keyed to the buffer version it was
// produced from.
type Tree struct {
	raw     sitter.Tree
	source  []byte
	vim9    bool
}

// Root returns the tree's root node, spanning the whole document
// (spec.md §3 invariant).
func (t *Tree) Root() Node {
	return Node{tree: t, n: t.raw.RootNode()}
}

// Vim9 reports whether this document was parsed as a vim9script.
func (t *Tree) Vim9() bool { return t.vim9 }

// Close releases the tree-sitter resources backing t. Safe to call on a
// tree that has already been superseded by a reparse.
func (t *Tree) Close() {
	t.raw.Close()
}

// language is the shared compiled grammar; tree-sitter languages are
// immutable and safe to share across parsers.
var language = sitter.NewLanguage(vimlang.GetLanguage())
