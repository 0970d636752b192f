package workspace_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/workspace"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCrawlAndLookupAutoload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "autoload/myplugin/util.vim", "function! myplugin#util#helper()\nendfunction\n")

	idx := workspace.New([]string{dir})
	t.Cleanup(idx.Close)
	if err := idx.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	path, sym, found := idx.LookupAutoload("myplugin#util#helper")
	if !found {
		t.Fatal("expected autoload lookup to find the file")
	}
	if filepath.Base(path) != "util.vim" {
		t.Errorf("want util.vim, got %s", path)
	}
	if sym == nil || sym.Name != "myplugin#util#helper" {
		t.Errorf("want resolved symbol for myplugin#util#helper, got %+v", sym)
	}
}

func TestOpenDocumentShadowsDiskEntry(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plugin/foo.vim", "function! s:Old()\nendfunction\n")

	idx := workspace.New([]string{dir})
	t.Cleanup(idx.Close)
	if err := idx.Crawl(context.Background()); err != nil {
		t.Fatal(err)
	}

	uri := "file://" + filepath.Join(dir, "plugin/foo.vim")
	live := &symbols.Table{}
	idx.OnDidOpen(uri, live)

	results := idx.Search("Old")
	for _, r := range results {
		if r.URI == uri && r.Symbol.Name == "Old" {
			t.Fatal("expected live empty table to shadow disk-parsed symbols")
		}
	}

	idx.OnDidClose(uri)
}

func TestIgnoresGitDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".git/hooks/sample.vim", "function! ShouldBeIgnored()\nendfunction\n")
	writeFile(t, dir, "plugin/visible.vim", "function! Visible()\nendfunction\n")

	idx := workspace.New([]string{dir})
	t.Cleanup(idx.Close)
	if err := idx.Crawl(context.Background()); err != nil {
		t.Fatal(err)
	}

	results := idx.Search("")
	var names []string
	for _, r := range results {
		names = append(names, r.Symbol.Name)
	}
	for _, n := range names {
		if n == "ShouldBeIgnored" {
			t.Fatalf("expected .git/ to be ignored, got symbols %v", names)
		}
	}
}
