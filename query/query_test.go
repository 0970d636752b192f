package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

func newContext(t *testing.T, src string) *query.Context {
	t.Helper()
	buf := buffer.New(src)
	p := syntax.New()
	t.Cleanup(p.Close)
	tree, err := p.ReparseFull(context.Background(), buf.Bytes())
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return &query.Context{URI: "file:///a.vim", Buf: buf, Tree: tree, Table: symbols.Extract(tree)}
}

func TestDocumentSymbolsListsTopLevelFunctionsAndVariables(t *testing.T) {
	c := newContext(t, "function! s:Foo() abort\nendfunction\nlet g:bar = 1\n")
	syms := c.DocumentSymbols()
	var names []string
	for _, s := range syms {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"s:Foo", "g:bar"}, names)
}

func TestFoldingRangesCoverBlocks(t *testing.T) {
	c := newContext(t, "function! s:Foo()\n  if 1\n    echo 1\n  endif\nendfunction\n")
	folds := c.FoldingRanges()
	require.GreaterOrEqual(t, len(folds), 2, "want at least 2 folding ranges (function, if), got %+v", folds)
	for _, f := range folds {
		assert.Equal(t, protocol.FoldingRegion, f.Kind)
	}
}

func TestSelectionRangeChainContainsPosition(t *testing.T) {
	c := newContext(t, "let g:x = 1\n")
	pos := protocol.Position{Line: 0, Character: 5}
	sel := c.SelectionRange(pos)
	if sel == nil {
		t.Fatal("want a selection range chain")
	}
	for cur := sel; cur != nil; cur = cur.Parent {
		if !cur.Range.Contains(pos) {
			t.Errorf("ancestor range %+v does not contain position %+v", cur.Range, pos)
		}
	}
}

func TestCompletionAfterSetSuggestsOptions(t *testing.T) {
	c := newContext(t, "set num\n")
	items := c.Completion(protocol.Position{Line: 0, Character: 7})
	var sawNumber bool
	for _, item := range items {
		if item.Label == "number" {
			sawNumber = true
		}
	}
	if !sawNumber {
		t.Errorf("want 'number' option suggested, got %+v", items)
	}
}

func TestCompletionExpressionListsUserFunctionsBeforeBuiltins(t *testing.T) {
	c := newContext(t, "function! s:Len() abort\nendfunction\ncall \n")
	items := c.Completion(protocol.Position{Line: 2, Character: 5})
	foundUser, foundBuiltin := false, false
	userIdx, builtinIdx := -1, -1
	for i, item := range items {
		if item.Label == "s:Len" {
			foundUser = true
			userIdx = i
		}
		if item.Label == "len" {
			foundBuiltin = true
			builtinIdx = i
		}
	}
	if !foundUser || !foundBuiltin {
		t.Fatalf("want both user and builtin completions, got %+v", items)
	}
	if userIdx > builtinIdx {
		t.Errorf("want user function s:Len sorted before builtin len")
	}
}
