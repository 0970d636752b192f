package format_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"kr.dev/diff"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/config"
	"hjkls.dev/hjkls/format"
	"hjkls.dev/hjkls/syntax"
)

func formatSource(t *testing.T, src string, opts config.FormatOptions) string {
	t.Helper()
	buf := buffer.New(src)
	p := syntax.New()
	t.Cleanup(p.Close)
	tree, err := p.ReparseFull(context.Background(), buf.Bytes())
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	got, edits := format.Format(tree, buf, opts)
	require.Len(t, edits, 1, "want a single full-document edit")
	return got
}

func TestFormatIndentsAndSpacesOperators(t *testing.T) {
	src := "function! F()\n" +
		"if 1==1\n" +
		"let g:x=1+2\n" +
		"endif\n" +
		"endfunction\n"
	got := formatSource(t, src, config.Default())

	want := "function! F()\n" +
		"  if 1 == 1\n" +
		"    let g:x = 1 + 2\n" +
		"  endif\n" +
		"endfunction\n"
	diff.Test(t, t.Errorf, got, want)
}

func TestFormatTrimsTrailingWhitespace(t *testing.T) {
	src := "let g:x = 1   \nlet g:y = 2\t\t\n"
	got := formatSource(t, src, config.Default())
	for i, line := range strings.Split(got, "\n") {
		if line != strings.TrimRight(line, " \t") {
			t.Errorf("line %d retains trailing whitespace: %q", i, line)
		}
	}
}

func TestFormatLeavesStringAndCommentContentUntouched(t *testing.T) {
	src := "let g:x = 'a    b'\n\" keep   this    spacing\n"
	got := formatSource(t, src, config.Default())
	if !strings.Contains(got, "'a    b'") {
		t.Errorf("string contents were rewritten: %q", got)
	}
	if !strings.Contains(got, "\" keep   this    spacing") {
		t.Errorf("comment contents were rewritten: %q", got)
	}
}

func TestFormatDoesNotSpaceScopeColon(t *testing.T) {
	src := "let g:x = 1\n"
	got := formatSource(t, src, config.Default())
	if strings.Contains(got, "g: x") {
		t.Errorf("scope prefix colon was spaced: %q", got)
	}
}

func TestFormatSpacesDictColon(t *testing.T) {
	src := "let g:d = {'a':1, 'b':2,}\n"
	got := formatSource(t, src, config.Default())
	if !strings.Contains(got, "'a': 1, 'b': 2,") {
		t.Errorf("dict entries not spaced as expected: %q", got)
	}
}

func TestFormatIsIdempotent(t *testing.T) {
	src := "function! s:F(a, b) abort\n  if a==b\n    return a+b\n  endif\nendfunction\n"
	once := formatSource(t, src, config.Default())
	twice := formatSource(t, once, config.Default())
	diff.Test(t, t.Errorf, twice, once)
}

func TestFormatInsertsFinalNewline(t *testing.T) {
	src := "let g:x = 1"
	got := formatSource(t, src, config.Default())
	if !strings.HasSuffix(got, "\n") {
		t.Errorf("want a single trailing newline, got %q", got)
	}
}
