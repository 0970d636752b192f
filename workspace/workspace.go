// Package workspace maintains the cross-file symbol index spec.md §4.D
// describes: a crawl of the project root and the autoload search paths
// ($VIMRUNTIME and any additional roots), kept fresh as documents open,
// change, and close, and as the editor reports watched-file changes.
package workspace

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

// defaultIgnore is the default ignore policy (spec.md §4.D): skip VCS and
// dependency directories while crawling for *.vim files.
var defaultIgnore = []string{
	"**/.git/**", "**/.svn/**", "**/.hg/**",
	"**/node_modules/**", "**/vendor/**",
}

// entry is one file's indexed state.
type entry struct {
	uri      string
	path     string
	modToken string // os.FileInfo.ModTime().String(), treated as an opaque token
	symbols  *symbols.Table
	parsed   bool // false if the file failed to parse (spec.md §7 "unparsed")
}

// Index is the cross-file symbol catalogue. Writers (Crawl, file-watch
// handlers, OnDidOpen/OnDidClose) serialize on mu; readers take a
// consistent snapshot under RLock (spec.md §5 "single-writer/many-reader").
type Index struct {
	mu      sync.RWMutex
	entries map[string]*entry  // keyed by URI, disk-parsed state
	open    map[string]*symbols.Table // keyed by URI, shadows entries while open

	roots       []string
	ignore      []string
	onUnreadable func(path string, err error) // logging hook; nil is fine
}

// Option configures a New Index.
type Option func(*Index)

// WithIgnore appends extra doublestar ignore patterns to the default policy.
func WithIgnore(patterns ...string) Option {
	return func(idx *Index) { idx.ignore = append(idx.ignore, patterns...) }
}

// WithUnreadableHook installs a callback invoked once per path that could
// not be read or parsed (spec.md §7 "logged once per path; that path is
// skipped").
func WithUnreadableHook(f func(path string, err error)) Option {
	return func(idx *Index) { idx.onUnreadable = f }
}

// New creates an empty Index over roots (project root plus autoload roots).
func New(roots []string, opts ...Option) *Index {
	idx := &Index{
		entries: make(map[string]*entry),
		open:    make(map[string]*symbols.Table),
		roots:   roots,
		ignore:  append([]string(nil), defaultIgnore...),
	}
	for _, o := range opts {
		o(idx)
	}
	return idx
}

// Close is a no-op today; parseFile owns and releases a parser per call, so
// the Index itself holds no parser resource to release. Kept for symmetry
// with Document.Close and in case a future pooled parser needs it.
func (idx *Index) Close() {}

// Crawl enumerates *.vim files under every root not matched by the ignore
// policy and parses each independently on up to eight concurrent workers,
// returning once every file has been parsed. No scheduling priority is
// applied relative to other work. Crawl is safe to call again to pick up newly discovered
// roots; existing entries are left alone unless their file is revisited.
func (idx *Index) Crawl(ctx context.Context) error {
	type job struct{ uri, path string }
	var jobs []job
	seen := map[string]bool{}

	for _, root := range idx.roots {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if idx.onUnreadable != nil {
					idx.onUnreadable(p, err)
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(p, ".vim") {
				return nil
			}
			rel, relErr := filepath.Rel(root, p)
			if relErr == nil && idx.isIgnored(filepath.ToSlash(rel)) {
				return nil
			}
			uri := pathToURI(p)
			if seen[uri] {
				return nil
			}
			seen[uri] = true
			jobs = append(jobs, job{uri, p})
			return nil
		})
		if err != nil && idx.onUnreadable != nil {
			idx.onUnreadable(root, err)
		}
	}

	const maxWorkers = 8
	sem := make(chan struct{}, maxWorkers)
	var wg sync.WaitGroup
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			idx.parseFile(ctx, j.uri, j.path)
		}(j)
	}
	wg.Wait()
	return nil
}

func (idx *Index) isIgnored(rel string) bool {
	for _, pat := range idx.ignore {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (idx *Index) parseFile(ctx context.Context, uri, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if idx.onUnreadable != nil {
			idx.onUnreadable(path, err)
		}
		idx.mu.Lock()
		idx.entries[uri] = &entry{uri: uri, path: path, parsed: false}
		idx.mu.Unlock()
		return
	}
	info, _ := os.Stat(path)
	modToken := ""
	if info != nil {
		modToken = info.ModTime().String()
	}

	// A syntax.Parser is not safe for concurrent use (syntax/parser.go), and
	// Crawl runs parseFile from up to maxWorkers goroutines at once, so each
	// call gets its own parser rather than sharing one across the index.
	parser := syntax.New()
	defer parser.Close()
	tree, err := parser.ReparseFull(ctx, data)
	e := &entry{uri: uri, path: path, modToken: modToken}
	if err != nil {
		e.parsed = false
	} else {
		e.parsed = true
		e.symbols = symbols.Extract(tree)
		tree.Close()
	}

	idx.mu.Lock()
	idx.entries[uri] = e
	idx.mu.Unlock()
}

// OnDidOpen makes table the authoritative symbol source for uri, shadowing
// any disk-parsed entry (spec.md §4.D freshness contract).
func (idx *Index) OnDidOpen(uri string, table *symbols.Table) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.open[uri] = table
}

// OnDidChange updates the live shadow for an already-open document.
func (idx *Index) OnDidChange(uri string, table *symbols.Table) {
	idx.OnDidOpen(uri, table)
}

// OnDidClose drops the live shadow for uri, re-adopting the disk-parsed
// version until the next crawl or watched-file notification.
func (idx *Index) OnDidClose(uri string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.open, uri)
}

// ChangeKind enumerates workspace/didChangeWatchedFiles change types.
type ChangeKind int

const (
	FileCreated ChangeKind = iota + 1
	FileChanged
	FileDeleted
)

// OnDidChangeWatchedFiles applies a workspace/didChangeWatchedFiles
// notification: created/changed files are (re-)parsed at crawl priority,
// deleted files are evicted (SPEC_FULL.md §11).
func (idx *Index) OnDidChangeWatchedFiles(ctx context.Context, uri string, kind ChangeKind) {
	p := uriToPath(uri)
	switch kind {
	case FileDeleted:
		idx.mu.Lock()
		delete(idx.entries, uri)
		idx.mu.Unlock()
	default:
		idx.parseFile(ctx, uri, p)
	}
}

// SymbolRef pairs a symbol with the URI of the document it was found in.
type SymbolRef struct {
	URI    string
	Symbol *symbols.Symbol
}

// table returns the effective symbol table for uri: the live one if open,
// else the disk-parsed one.
func (idx *Index) table(uri string) (*symbols.Table, bool) {
	if t, ok := idx.open[uri]; ok {
		return t, true
	}
	if e, ok := idx.entries[uri]; ok && e.parsed {
		return e.symbols, true
	}
	return nil, false
}

// Lookup resolves name in scope across every indexed document, open
// documents taking priority (spec.md §4.D).
func (idx *Index) Lookup(scope symbols.Scope, name string) []SymbolRef {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []SymbolRef
	for uri, t := range idx.open {
		for _, s := range t.Lookup(scope, name) {
			out = append(out, SymbolRef{URI: uri, Symbol: s})
		}
	}
	for uri, e := range idx.entries {
		if _, isOpen := idx.open[uri]; isOpen || !e.parsed {
			continue
		}
		for _, s := range e.symbols.Lookup(scope, name) {
			out = append(out, SymbolRef{URI: uri, Symbol: s})
		}
	}
	return out
}

// LookupAutoload resolves an autoload-qualified call name ("ns#sub#fn") to
// its expected file path and, if that file has been parsed, the defining
// symbol (spec.md §4.D, GLOSSARY "Autoload function").
func (idx *Index) LookupAutoload(qualifiedName string) (filePath string, sym *symbols.Symbol, found bool) {
	segments := strings.Split(qualifiedName, "#")
	if len(segments) < 2 {
		return "", nil, false
	}
	rel := "autoload/" + strings.Join(segments[:len(segments)-1], "/") + ".vim"

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for uri, e := range idx.entries {
		if !strings.HasSuffix(filepath.ToSlash(e.path), rel) {
			continue
		}
		filePath = e.path
		if t, ok := idx.table(uri); ok {
			for _, f := range t.Functions {
				if f.Name == qualifiedName {
					return filePath, f, true
				}
			}
		}
		return filePath, nil, true
	}
	for _, root := range idx.roots {
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil, true
		}
	}
	return "", nil, false
}

// SearchResult is one workspace/symbol match.
type SearchResult struct {
	URI    string
	Symbol *symbols.Symbol
	Score  int // higher is a better match
}

// Search performs a case-insensitive substring/fuzzy match over every
// visible symbol, ranking exact-prefix matches above fuzzy ones
// (spec.md §4.D, §4.F workspace/symbol).
func (idx *Index) Search(query string) []SearchResult {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	lowerQuery := strings.ToLower(query)
	var out []SearchResult
	visit := func(uri string, t *symbols.Table) {
		for _, s := range t.AllSymbols() {
			score, ok := matchScore(lowerQuery, s.Name)
			if !ok {
				continue
			}
			out = append(out, SearchResult{URI: uri, Symbol: s, Score: score})
		}
	}
	for uri, t := range idx.open {
		visit(uri, t)
	}
	for uri, e := range idx.entries {
		if _, isOpen := idx.open[uri]; isOpen || !e.parsed {
			continue
		}
		visit(uri, e.symbols)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func matchScore(lowerQuery, name string) (int, bool) {
	if lowerQuery == "" {
		return 1, true
	}
	lowerName := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lowerName, lowerQuery):
		return 100, true
	case strings.Contains(lowerName, lowerQuery):
		return 50, true
	case fuzzy.MatchFold(lowerQuery, name):
		return 10, true
	}
	return 0, false
}

func pathToURI(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return "file://" + filepath.ToSlash(abs)
}

func uriToPath(uri string) string {
	return filepath.FromSlash(strings.TrimPrefix(uri, "file://"))
}

// PathToURI and URIToPath expose the index's own file:// conversion so
// callers outside this package (the server orchestrator, cmd/hjkls) use
// exactly the same mapping the index does internally.
func PathToURI(p string) string { return pathToURI(p) }
func URIToPath(uri string) string { return uriToPath(uri) }

// AutoloadRoots computes the autoload search roots for a project: the
// project root itself plus $VIMRUNTIME when set (spec.md §4.D, §6).
func AutoloadRoots(projectRoot, vimruntime string) []string {
	roots := []string{projectRoot}
	if vimruntime != "" {
		roots = append(roots, vimruntime)
	}
	return roots
}

// DerivedAutoloadPath computes the autoload/ file path for a qualified
// function name, without consulting the index (GLOSSARY "Autoload function").
func DerivedAutoloadPath(qualifiedName string) string {
	segments := strings.Split(qualifiedName, "#")
	if len(segments) < 2 {
		return ""
	}
	return path.Join("autoload", path.Join(segments[:len(segments)-1]...)) + ".vim"
}
