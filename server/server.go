// Package server is the transport-agnostic orchestrator spec.md §4.I and
// §5 describe: it owns the open-document table, the workspace index, the
// diagnostic engine, and project configuration, and dispatches every
// query/format/refactor operation against them. cmd/hjkls is the only
// caller; it owns the wire transport and hands every request here.
package server

import (
	"context"
	"fmt"

	"hjkls.dev/hjkls/config"
	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/document"
	"hjkls.dev/hjkls/format"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
	"hjkls.dev/hjkls/refactor"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/workspace"
)

// PublishFunc is how the orchestrator hands a document's fresh diagnostic
// set back to the transport for a textDocument/publishDiagnostics
// notification. Called synchronously at the end of every operation that
// can change a document's diagnostics (spec.md §4.I "recomputes ...
// before the pipeline returns" — since cmd/hjkls processes one message at
// a time, that synchronous return already gives callers a single,
// up-to-date publish per edit with no separate timer needed).
type PublishFunc func(uri string, diags []protocol.Diagnostic)

// Server holds every open document plus the shared workspace index,
// diagnostic engine, and configuration a single hjkls process serves.
// A Server is not safe for concurrent use; cmd/hjkls processes one
// request at a time, which is what gives Document its single-mailbox
// guarantee (spec.md §5).
type Server struct {
	docs    map[string]*document.Document
	engine  *diagnostics.Engine
	idx     *workspace.Index
	cfg     config.Config
	publish PublishFunc
}

// New creates a Server. Initialize must be called once a root is known
// before any workspace-wide operation (crawl, workspace/symbol) is useful.
func New(publish PublishFunc) *Server {
	return &Server{
		docs:    make(map[string]*document.Document),
		engine:  diagnostics.NewEngine(),
		publish: publish,
	}
}

// Initialize sets up the workspace index over root plus any autoload
// roots under vimruntime, loads .hjkls.toml from root, and crawls the
// project for *.vim files in the background priority spec.md §4.D
// describes (here: synchronously, before initialize returns, since
// cmd/hjkls has no background scheduler of its own).
func (s *Server) Initialize(ctx context.Context, root, vimruntime string, warn func(string)) {
	cfg, warnings := config.Load(root)
	s.cfg = cfg
	for _, w := range warnings {
		warn(w)
	}

	roots := workspace.AutoloadRoots(root, vimruntime)
	s.idx = workspace.New(roots, workspace.WithUnreadableHook(func(path string, err error) {
		warn(fmt.Sprintf("hjkls: skipping %s: %v", path, err))
	}))
	if err := s.idx.Crawl(ctx); err != nil {
		warn(fmt.Sprintf("hjkls: workspace crawl: %v", err))
	}
}

// Shutdown releases the workspace index's parser and every open
// document's parser/tree.
func (s *Server) Shutdown() {
	for _, d := range s.docs {
		d.Close(s.idx)
	}
	s.docs = make(map[string]*document.Document)
	if s.idx != nil {
		s.idx.Close()
	}
}

// DidOpen opens a document, runs the first diagnostic pass, and publishes it.
func (s *Server) DidOpen(ctx context.Context, uri, text string, version int) error {
	d, err := document.Open(ctx, uri, text, version, s.engine, s.idx)
	if err != nil {
		return err
	}
	s.docs[uri] = d
	s.publishFor(d)
	return nil
}

// DidChange applies a batch of content changes to an open document.
func (s *Server) DidChange(ctx context.Context, uri string, version int, changes []document.Change) error {
	d, ok := s.docs[uri]
	if !ok {
		return fmt.Errorf("document %s is not open", uri)
	}
	if _, err := d.ApplyChanges(ctx, version, changes, s.engine, s.idx); err != nil {
		return err
	}
	s.publishFor(d)
	s.refreshDependents(uri)
	return nil
}

// DidClose closes an open document.
func (s *Server) DidClose(uri string) {
	d, ok := s.docs[uri]
	if !ok {
		return
	}
	d.Close(s.idx)
	delete(s.docs, uri)
}

// DidChangeWatchedFiles applies a workspace/didChangeWatchedFiles
// notification to the index and republishes diagnostics for every open
// document, since a newly discovered autoload definition can resolve a
// previously undefined-function diagnostic elsewhere (SPEC_FULL.md §11).
func (s *Server) DidChangeWatchedFiles(ctx context.Context, uri string, kind workspace.ChangeKind) {
	if s.idx == nil {
		return
	}
	s.idx.OnDidChangeWatchedFiles(ctx, uri, kind)
	for _, d := range s.docs {
		d.Refresh(s.engine, s.idx)
		s.publishFor(d)
	}
}

func (s *Server) publishFor(d *document.Document) {
	if s.publish != nil {
		s.publish(d.URI, d.Diagnostics)
	}
}

// refreshDependents re-runs diagnostics for every other open document,
// since editing one file's function signature can change argument-count
// diagnostics resolved against it from elsewhere in the workspace.
func (s *Server) refreshDependents(changed string) {
	for uri, d := range s.docs {
		if uri == changed {
			continue
		}
		d.Refresh(s.engine, s.idx)
		s.publishFor(d)
	}
}

// context builds a query.Context for an open document, or nil if it isn't open.
func (s *Server) context(uri string) *query.Context {
	d, ok := s.docs[uri]
	if !ok {
		return nil
	}
	return &query.Context{URI: uri, Buf: d.Buf, Tree: d.Tree, Table: d.Table, Index: s.idx}
}

func (s *Server) Hover(uri string, pos protocol.Position) *protocol.Hover {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.Hover(pos)
}

func (s *Server) Definition(uri string, pos protocol.Position) []protocol.Location {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.Definition(pos)
}

func (s *Server) References(uri string, pos protocol.Position, includeDeclaration bool) []protocol.Location {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.References(pos, includeDeclaration)
}

func (s *Server) Completion(uri string, pos protocol.Position) []protocol.CompletionItem {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.Completion(pos)
}

func (s *Server) SignatureHelp(uri string, pos protocol.Position) *protocol.SignatureHelp {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.SignatureHelp(pos)
}

func (s *Server) DocumentHighlight(uri string, pos protocol.Position) []protocol.DocumentHighlight {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.DocumentHighlight(pos)
}

func (s *Server) DocumentSymbols(uri string) []protocol.DocumentSymbol {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.DocumentSymbols()
}

func (s *Server) WorkspaceSymbols(q string) []protocol.WorkspaceSymbol {
	return query.WorkspaceSymbols(s.idx, q)
}

func (s *Server) FoldingRanges(uri string) []protocol.FoldingRange {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.FoldingRanges()
}

func (s *Server) SelectionRange(uri string, pos protocol.Position) *protocol.SelectionRange {
	c := s.context(uri)
	if c == nil {
		return nil
	}
	return c.SelectionRange(pos)
}

// Formatting reformats an open document per its current FormatOptions.
func (s *Server) Formatting(uri string) []protocol.TextEdit {
	d, ok := s.docs[uri]
	if !ok {
		return nil
	}
	_, edits := format.Format(d.Tree, d.Buf, s.cfg.Format)
	return edits
}

func (s *Server) PrepareRename(uri string, pos protocol.Position) (protocol.Range, bool) {
	c := s.context(uri)
	if c == nil {
		return protocol.Range{}, false
	}
	return refactor.PrepareRename(c, pos)
}

func (s *Server) Rename(uri string, pos protocol.Position, newName string) (protocol.WorkspaceEdit, error) {
	c := s.context(uri)
	if c == nil {
		return protocol.WorkspaceEdit{}, fmt.Errorf("document %s is not open", uri)
	}
	return refactor.Rename(c, pos, newName)
}

func (s *Server) CodeActions(uri string, rng protocol.Range) []protocol.CodeAction {
	d, ok := s.docs[uri]
	if !ok {
		return nil
	}
	c := s.context(uri)
	return refactor.CodeActions(c, d.Diagnostics, rng)
}

// AllSymbols exposes a document's symbol table, used by tests and by
// transports that want to inspect state without a position (none of the
// LSP surface needs it directly).
func (s *Server) AllSymbols(uri string) []*symbols.Symbol {
	d, ok := s.docs[uri]
	if !ok {
		return nil
	}
	return d.Table.AllSymbols()
}
