package symbols_test

import (
	"context"
	"testing"

	"kr.dev/diff"

	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	p := syntax.New()
	t.Cleanup(p.Close)
	tree, err := p.ReparseFull(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("ReparseFull: %v", err)
	}
	t.Cleanup(tree.Close)
	return tree
}

func TestExtractFunctionAndParams(t *testing.T) {
	src := "function! s:Foo(a, b, ...) abort\n  let l:x = a:a\nendfunction\n"
	table := symbols.Extract(parse(t, src))

	if len(table.Functions) != 1 {
		t.Fatalf("want 1 function, got %d", len(table.Functions))
	}
	fn := table.Functions[0]
	diff.Test(t, t.Errorf, fn.Name, "Foo")
	diff.Test(t, t.Errorf, fn.Scope, symbols.ScopeScript)
	diff.Test(t, t.Errorf, fn.Bang, true)
	diff.Test(t, t.Errorf, fn.Abort, true)
	diff.Test(t, t.Errorf, fn.Variadic, true)
	diff.Test(t, t.Errorf, fn.MinArgs, 2)
	if !fn.IsUnboundedMax() {
		t.Errorf("want unbounded max for variadic function")
	}
}

func TestExtractScopeViolationCandidateReferences(t *testing.T) {
	src := "let l:x = 1\n"
	table := symbols.Extract(parse(t, src))
	var sawLocal bool
	for _, v := range table.Variables {
		if v.Scope == symbols.ScopeLocal && v.Name == "x" {
			sawLocal = true
		}
	}
	if !sawLocal {
		t.Errorf("expected a script-level l: variable symbol to be recorded for the diagnostic engine to flag")
	}
}

func TestExtractCallableBearingVariable(t *testing.T) {
	src := "let s:Handler = { x -> x + 1 }\n"
	table := symbols.Extract(parse(t, src))
	if len(table.Variables) != 1 || !table.Variables[0].CallableBearing {
		t.Fatalf("want s:Handler marked callable-bearing, got %+v", table.Variables)
	}
}
