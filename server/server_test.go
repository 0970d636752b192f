package server_test

import (
	"context"
	"testing"

	"hjkls.dev/hjkls/document"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/server"
)

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	var published []protocol.Diagnostic
	s := server.New(func(uri string, diags []protocol.Diagnostic) {
		published = diags
	})
	err := s.DidOpen(context.Background(), "file:///a.vim", "function! s:Foo()\nendfunction\n", 1)
	if err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	if len(published) == 0 {
		t.Fatalf("want at least one diagnostic (missing abort), got none")
	}
}

func TestDidChangeReparsesAndRepublishes(t *testing.T) {
	var published []protocol.Diagnostic
	s := server.New(func(uri string, diags []protocol.Diagnostic) {
		published = diags
	})
	ctx := context.Background()
	if err := s.DidOpen(ctx, "file:///a.vim", "let g:x = 1\n", 1); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	err := s.DidChange(ctx, "file:///a.vim", 2, []document.Change{{Text: "let g:x = g:a . g:b\n"}})
	if err != nil {
		t.Fatalf("DidChange: %v", err)
	}
	var sawDoubleDot bool
	for _, d := range published {
		if d.Code == "style#double_dot" {
			sawDoubleDot = true
		}
	}
	if !sawDoubleDot {
		t.Errorf("want double_dot diagnostic after change, got %+v", published)
	}
}

func TestHoverAndDefinitionResolveSymbol(t *testing.T) {
	s := server.New(func(string, []protocol.Diagnostic) {})
	ctx := context.Background()
	src := "function! s:Foo() abort\nendfunction\ncall s:Foo()\n"
	if err := s.DidOpen(ctx, "file:///a.vim", src, 1); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	pos := protocol.Position{Line: 2, Character: 7}
	if hov := s.Hover("file:///a.vim", pos); hov == nil {
		t.Fatalf("want a hover result for s:Foo call")
	}
	locs := s.Definition("file:///a.vim", pos)
	if len(locs) == 0 {
		t.Fatalf("want a definition location for s:Foo call")
	}
}

func TestFormattingReturnsFullDocumentEdit(t *testing.T) {
	s := server.New(func(string, []protocol.Diagnostic) {})
	ctx := context.Background()
	if err := s.DidOpen(ctx, "file:///a.vim", "let g:x=1\n", 1); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	edits := s.Formatting("file:///a.vim")
	if len(edits) != 1 {
		t.Fatalf("want a single full-document edit, got %d", len(edits))
	}
}

func TestDidCloseRemovesDocument(t *testing.T) {
	s := server.New(func(string, []protocol.Diagnostic) {})
	ctx := context.Background()
	if err := s.DidOpen(ctx, "file:///a.vim", "let g:x = 1\n", 1); err != nil {
		t.Fatalf("DidOpen: %v", err)
	}
	s.DidClose("file:///a.vim")
	if hov := s.Hover("file:///a.vim", protocol.Position{}); hov != nil {
		t.Errorf("want nil hover for a closed document, got %+v", hov)
	}
}
