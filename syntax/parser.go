package syntax

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/protocol"
)

// Parser produces and incrementally updates parse trees for Vim-script
// buffers (spec.md §4.B). A Parser is not safe for concurrent use; tree-
// sitter parsers serialize internally the same way a document's buffer
// does, so callers own one Parser per document.
type Parser struct {
	p *sitter.Parser
}

// New creates a Parser configured with the Vim-script grammar.
func New() *Parser {
	p := sitter.NewParser()
	if err := p.SetLanguage(language); err != nil {
		// The grammar is a compile-time constant; a failure here means the
		// bound grammar and the bindings have drifted, which is a build-time
		// problem, not a runtime one.
		panic("syntax: failed to load vim grammar: " + err.Error())
	}
	return &Parser{p: p}
}

// ReparseFull parses text from scratch, with no prior tree to reuse.
func (p *Parser) ReparseFull(ctx context.Context, text []byte) (*Tree, error) {
	raw, err := p.p.ParseCtx(ctx, nil, text)
	if err != nil {
		return nil, err
	}
	t := &Tree{raw: raw, source: text}
	t.vim9 = detectVim9(t)
	return t, nil
}

// ReparseIncremental applies edits to old's underlying tree-sitter tree and
// reparses, reusing unaffected subtrees. old is consumed: callers must not
// use it after this call returns (use the returned Tree instead).
func (p *Parser) ReparseIncremental(ctx context.Context, old *Tree, edits []buffer.Edit, newText []byte) (*Tree, error) {
	if old == nil {
		return p.ReparseFull(ctx, newText)
	}
	for _, e := range edits {
		old.raw.Edit(sitter.EditInput{
			StartIndex:  uint32(e.StartByte),
			OldEndIndex: uint32(e.OldEndByte),
			NewEndIndex: uint32(e.NewEndByte),
			StartPoint:  toPoint(e.StartPoint),
			OldEndPoint: toPoint(e.OldEndPoint),
			NewEndPoint: toPoint(e.NewEndPoint),
		})
	}
	raw, err := p.p.ParseCtx(ctx, &old.raw, newText)
	old.raw.Close()
	if err != nil {
		return nil, err
	}
	t := &Tree{raw: raw, source: newText}
	t.vim9 = detectVim9(t)
	return t, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.p.Close()
}

func toPoint(pos protocol.Position) sitter.Point {
	return sitter.Point{Row: uint32(pos.Line), Column: uint32(pos.Character)}
}

func detectVim9(t *Tree) bool {
	root := t.Root()
	for i := 0; i < root.ChildCount(); i++ {
		c := root.Child(i)
		switch c.Kind() {
		case KindComment:
			continue
		case KindVim9Script:
			return true
		default:
			return false
		}
	}
	return false
}

// cmdMappingRHS matches the `<Cmd>...<CR>` family of mapping right-hand
// sides the grammar's command_argument rule greedily over-consumes,
// producing spurious ERROR/MISSING nodes (spec.md §4.B known bug).
var cmdMappingRHS = regexp.MustCompile(`(?i)^<[a-z]+>[^<]*<c-?r>$`)

// IsSpuriousCmdError reports whether n is an ERROR or MISSING node that is
// an artifact of the `<Cmd>...<CR>` grammar bug rather than a genuine
// syntax problem, so the diagnostic engine can suppress it.
func IsSpuriousCmdError(n Node) bool {
	if !n.IsError() && !n.IsMissing() {
		return false
	}
	text := strings.TrimSpace(n.Text())
	return cmdMappingRHS.MatchString(text)
}
