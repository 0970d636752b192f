package document_test

import (
	"context"
	"testing"

	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/document"
	"hjkls.dev/hjkls/protocol"
)

func TestOpenProducesDiagnostics(t *testing.T) {
	eng := diagnostics.NewEngine()
	doc, err := document.Open(context.Background(), "file:///a.vim", "let l:x = 1\n", 1, eng, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close(nil) })

	var found bool
	for _, d := range doc.Diagnostics {
		if d.Code == "correctness#scope_violation" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want scope_violation diagnostic on open, got %+v", doc.Diagnostics)
	}
}

func TestApplyChangeReparses(t *testing.T) {
	eng := diagnostics.NewEngine()
	doc, err := document.Open(context.Background(), "file:///a.vim", "function! s:F()\nendfunction\n", 1, eng, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close(nil) })

	rng := &protocol.Range{
		Start: protocol.Position{Line: 0, Character: 14},
		End:   protocol.Position{Line: 0, Character: 14},
	}
	diags, err := doc.ApplyChanges(context.Background(), 2, []document.Change{{Range: rng, Text: "a, b"}}, eng, nil)
	if err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	if len(doc.Table.Functions) != 1 || doc.Table.Functions[0].Name != "F" {
		t.Fatalf("want function F with new params, got %+v", doc.Table.Functions)
	}
	if got := len(doc.Table.Functions[0].Params); got != 2 {
		t.Fatalf("want 2 params after edit, got %d: %+v", got, doc.Table.Functions[0].Params)
	}
	if doc.Version != 2 {
		t.Errorf("want version 2, got %d", doc.Version)
	}
	if len(diags) != len(doc.Diagnostics) {
		t.Fatalf("ApplyChanges result diverged from doc.Diagnostics: %+v vs %+v", diags, doc.Diagnostics)
	}
}

// TestApplyChangePublishesFreshDiagnostics covers spec.md §8 scenario 1:
// typing an unclosed function must publish a syntax error within the same
// reparse that applied the edit, not the diagnostics left over from Open.
func TestApplyChangePublishesFreshDiagnostics(t *testing.T) {
	eng := diagnostics.NewEngine()
	doc, err := document.Open(context.Background(), "file:///a.vim", "let g:x = 1\n", 1, eng, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close(nil) })

	diags, err := doc.ApplyChanges(context.Background(), 2, []document.Change{
		{Text: "function! Broken(\nendfunction\n"},
	}, eng, nil)
	if err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}

	var found bool
	for _, d := range diags {
		if d.Code == "correctness#syntax_error" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want syntax_error diagnostic after edit, got %+v", diags)
	}
}

func TestApplyFullChangeResetsText(t *testing.T) {
	eng := diagnostics.NewEngine()
	doc, err := document.Open(context.Background(), "file:///a.vim", "let g:x = 1\n", 1, eng, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { doc.Close(nil) })

	_, err = doc.ApplyChanges(context.Background(), 2, []document.Change{{Text: "let g:y = 2\n"}}, eng, nil)
	if err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	if doc.Buf.Text() != "let g:y = 2\n" {
		t.Fatalf("want full replacement text, got %q", doc.Buf.Text())
	}
}
