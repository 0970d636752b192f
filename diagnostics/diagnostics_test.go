package diagnostics_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

func run(t *testing.T, src string) []protocol.Diagnostic {
	t.Helper()
	buf := buffer.New(src)
	p := syntax.New()
	t.Cleanup(p.Close)
	tree, err := p.ReparseFull(context.Background(), buf.Bytes())
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	table := symbols.Extract(tree)

	eng := diagnostics.NewEngine()
	return eng.Run(&diagnostics.RunContext{Tree: tree, Table: table, Buffer: buf})
}

func hasCode(diags []protocol.Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestScopeViolation(t *testing.T) {
	diags := run(t, "let l:x = 1\n")
	var count int
	for _, d := range diags {
		if d.Code == "correctness#scope_violation" {
			count++
		}
	}
	assert.Equal(t, 1, count, "want exactly one correctness#scope_violation, got %+v", diags)
}

func TestArgumentCountMismatch(t *testing.T) {
	diags := run(t, "call strlen()\n")
	assert.True(t, hasCode(diags, "correctness#argument_count_mismatch"), "want correctness#argument_count_mismatch, got %+v", diags)
}

func TestSuppressNextLine(t *testing.T) {
	src := "\" hjkls:ignore-next-line suspicious#normal_bang\n" +
		"normal j\n" +
		"\n" +
		"normal k\n"
	diags := run(t, src)

	var normalBangLines []int
	for _, d := range diags {
		if d.Code == "suspicious#normal_bang" {
			normalBangLines = append(normalBangLines, d.Range.Start.Line)
		}
	}
	assert.NotContains(t, normalBangLines, 1, "line 1 (normal j) should be suppressed")
	assert.Contains(t, normalBangLines, 3, "expected normal_bang on line 3 (normal k)")
}

func TestDiagnosticCodeShape(t *testing.T) {
	diags := run(t, "let l:x = 1\ncall strlen()\n")
	for _, d := range diags {
		assert.NotEmpty(t, d.Code, "diagnostic missing code: %+v", d)
	}
}
