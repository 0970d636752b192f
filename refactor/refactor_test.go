package refactor_test

import (
	"context"
	"testing"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
	"hjkls.dev/hjkls/refactor"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

func newContext(t *testing.T, src string) *query.Context {
	t.Helper()
	buf := buffer.New(src)
	p := syntax.New()
	t.Cleanup(p.Close)
	tree, err := p.ReparseFull(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("ReparseFull: %v", err)
	}
	t.Cleanup(tree.Close)
	return &query.Context{URI: "file:///a.vim", Buf: buf, Tree: tree, Table: symbols.Extract(tree)}
}

func TestRenameReplacesDefinitionAndReferences(t *testing.T) {
	c := newContext(t, "function! s:Foo() abort\n  call s:Foo()\nendfunction\n")
	edit, err := refactor.Rename(c, protocol.Position{Line: 0, Character: 12}, "s:Bar")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	edits := edit.Changes[c.URI]
	if len(edits) < 2 {
		t.Fatalf("want at least 2 edits (definition + call), got %+v", edits)
	}
	for _, e := range edits {
		if e.NewText != "s:Bar" {
			t.Errorf("want replacement text s:Bar, got %q", e.NewText)
		}
	}
}

func TestRenameRejectsBuiltinShadow(t *testing.T) {
	c := newContext(t, "function! s:Foo() abort\nendfunction\n")
	_, err := refactor.Rename(c, protocol.Position{Line: 0, Character: 12}, "len")
	if err == nil {
		t.Fatal("want an error renaming to a builtin name")
	}
}

func TestRenameRejectsInvalidIdentifier(t *testing.T) {
	c := newContext(t, "function! s:Foo() abort\nendfunction\n")
	_, err := refactor.Rename(c, protocol.Position{Line: 0, Character: 12}, "1bad")
	if err == nil {
		t.Fatal("want an error renaming to an invalid identifier")
	}
}

func TestCodeActionsFixesNormalBang(t *testing.T) {
	c := newContext(t, "normal gg\n")
	rc := &diagnostics.RunContext{Tree: c.Tree, Table: c.Table, Buffer: c.Buf}
	diags := diagnostics.NewEngine().Run(rc)
	rng := protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 9}}
	actions := refactor.CodeActions(c, diags, rng)

	var found bool
	for _, a := range actions {
		edits := a.Edit.Changes[c.URI]
		for _, e := range edits {
			if e.NewText == "!" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("want a normal! quick fix, got %+v", actions)
	}
}

func TestCodeActionsFixesDoubleDot(t *testing.T) {
	c := newContext(t, "let g:x = g:a . g:b\n")
	rc := &diagnostics.RunContext{Tree: c.Tree, Table: c.Table, Buffer: c.Buf}
	diags := diagnostics.NewEngine().Run(rc)
	rng := protocol.Range{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 20}}
	actions := refactor.CodeActions(c, diags, rng)

	var found bool
	for _, a := range actions {
		for _, e := range a.Edit.Changes[c.URI] {
			if e.NewText == "g:a .. g:b" {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("want a .. concatenation quick fix, got %+v", actions)
	}
}
