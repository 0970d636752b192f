// Package document glues the buffer, parser, and symbol extractor into the
// per-document pipeline spec.md §2 and §4.I describe: an edit replaces
// buffer text, the parser reparses (incrementally when possible), the
// extractor rebuilds the symbol table, and the diagnostic engine
// recomputes the published diagnostic set — all before the pipeline
// returns, so callers never observe a stale combination of these four.
package document

import (
	"context"
	"fmt"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
	"hjkls.dev/hjkls/workspace"
)

// State machine spec.md §4.I defines: absent -> Opened -> {Edited ...} -> Closed.
type State int

const (
	StateOpened State = iota
	StateClosed
)

// Document is one open editor buffer and everything derived from it.
// Per spec.md §5, a Document is owned by a single mailbox: callers must
// serialize ApplyChange/Refresh calls for the same Document (the server
// package does this per-URI).
type Document struct {
	URI     string
	Version int
	State   State

	Buf    *buffer.Buffer
	Parser *syntax.Parser
	Tree   *syntax.Tree
	Table  *symbols.Table

	Diagnostics []protocol.Diagnostic
}

// Open creates a Document from its initial text and produces the first
// tree, symbol table, and diagnostic set.
func Open(ctx context.Context, uri, text string, version int, eng *diagnostics.Engine, idx *workspace.Index) (*Document, error) {
	if err := buffer.Validate(text); err != nil {
		return nil, fmt.Errorf("document %s: %w", uri, err)
	}
	d := &Document{
		URI:     uri,
		Version: version,
		State:   StateOpened,
		Buf:     buffer.New(text),
		Parser:  syntax.New(),
	}
	if err := d.reparseFull(ctx); err != nil {
		return nil, err
	}
	d.refresh(eng, idx)
	return d, nil
}

// Change is a single textDocument/didChange content change. A Change with
// Range == nil is a full-document replacement.
type Change struct {
	Range   *protocol.Range
	Text    string
}

// ApplyChanges applies a batch of changes in arrival order (spec.md §4.I
// "Edit coalescing"), reparses, re-extracts symbols, and recomputes
// diagnostics, returning the new diagnostic set.
func (d *Document) ApplyChanges(ctx context.Context, version int, changes []Change, eng *diagnostics.Engine, idx *workspace.Index) ([]protocol.Diagnostic, error) {
	var edits []buffer.Edit
	for _, c := range changes {
		if c.Range == nil {
			d.Buf.Reset(c.Text)
			edits = nil // a full reset invalidates incremental edits; full reparse follows
			continue
		}
		edits = append(edits, d.Buf.Replace(*c.Range, c.Text))
	}
	d.Version = version

	var err error
	if len(edits) == len(changes) && len(edits) > 0 {
		err = d.reparseIncremental(ctx, edits)
	} else {
		err = d.reparseFull(ctx)
	}
	if err != nil {
		return nil, err
	}
	d.refresh(eng, idx)
	return d.Diagnostics, nil
}

// Refresh recomputes the symbol table and diagnostic set from the current
// tree without touching the buffer. Exported so the orchestrator can
// re-run diagnostics after a workspace change that doesn't touch this
// document's own text (e.g. a newly discovered autoload definition).
func (d *Document) Refresh(eng *diagnostics.Engine, idx *workspace.Index) []protocol.Diagnostic {
	d.refresh(eng, idx)
	return d.Diagnostics
}

func (d *Document) refresh(eng *diagnostics.Engine, idx *workspace.Index) {
	d.Table = symbols.Extract(d.Tree)
	if idx != nil {
		idx.OnDidChange(d.URI, d.Table)
	}
	if eng == nil {
		d.Diagnostics = nil
		return
	}
	d.Diagnostics = eng.Run(&diagnostics.RunContext{
		Tree:   d.Tree,
		Table:  d.Table,
		Index:  idx,
		Buffer: d.Buf,
	})
}

func (d *Document) reparseFull(ctx context.Context) error {
	if d.Tree != nil {
		d.Tree.Close()
	}
	tree, err := d.Parser.ReparseFull(ctx, d.Buf.Bytes())
	if err != nil {
		return fmt.Errorf("document %s: %w", d.URI, err)
	}
	d.Tree = tree
	return nil
}

func (d *Document) reparseIncremental(ctx context.Context, edits []buffer.Edit) error {
	tree, err := d.Parser.ReparseIncremental(ctx, d.Tree, edits, d.Buf.Bytes())
	if err != nil {
		return fmt.Errorf("document %s: %w", d.URI, err)
	}
	d.Tree = tree
	return nil
}

// Close releases the Document's parser and tree resources. The workspace
// index re-adopts the disk-parsed version of this URI, if any
// (spec.md §4.D freshness contract).
func (d *Document) Close(idx *workspace.Index) {
	d.State = StateClosed
	if d.Tree != nil {
		d.Tree.Close()
	}
	d.Parser.Close()
	if idx != nil {
		idx.OnDidClose(d.URI)
	}
}
