// Package format produces a reformatted text image plus an edit list for a
// document via the tree-guided indentation and spacing passes spec.md §4.G
// describes, each gated by a [config.FormatOptions] flag. Passes consult
// the parse tree rather than a blind regex rewrite wherever the grammar
// actually distinguishes the thing being formatted: string/comment ranges
// are never touched, operator spacing is driven by unary_expression and
// binary_expression nodes (not a guess at surrounding punctuation), and
// colon spacing is scoped to dictionary entries so a scope prefix like
// "s:Foo" is never mistaken for one.
package format

import (
	"sort"
	"strings"
	"unicode/utf8"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/config"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/syntax"
)

// blockKeyword classifies a trimmed line's leading command for indentation
// purposes (spec.md §4.G step 1).
type blockKeyword int

const (
	kwNone blockKeyword = iota
	kwOpen
	kwClose
	kwMid // elseif/else/catch/finally: printed one level back, doesn't change depth
)

var openers = map[string]bool{
	"function": true, "function!": true,
	"if": true, "for": true, "while": true, "try": true,
}

var closers = map[string]bool{
	"endfunction": true, "endif": true, "endfor": true,
	"endwhile": true, "endtry": true,
}

var midKeywords = map[string]bool{
	"elseif": true, "else": true, "catch": true, "finally": true,
}

func classify(trimmed string) blockKeyword {
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return kwNone
	}
	first := fields[0]
	if first == "augroup" {
		if len(fields) >= 2 && fields[1] == "END" {
			return kwClose
		}
		return kwOpen
	}
	if openers[first] {
		return kwOpen
	}
	if closers[first] {
		return kwClose
	}
	if midKeywords[first] {
		return kwMid
	}
	return kwNone
}

// interval is a half-open byte range, used both for protected (string and
// comment) spans and for tree-derived operator/colon token positions.
type interval struct {
	start, end int
	text       string
}

// opSets bundles the tree-derived spans the content pass consults so it
// never has to re-guess what the grammar already knows.
type opSets struct {
	protected  []interval // string_literal, comment: copied verbatim
	unary      []interval // unary operator tokens: no surrounding space added
	binary     []interval // binary/assignment operator tokens: exactly one space each side
	dictColons map[int]bool
}

var assignOps = map[string]bool{"=": true, "+=": true, "-=": true, "*=": true, "/=": true, ".=": true}
var unaryOps = map[string]bool{"-": true, "+": true, "!": true}

func collect(tree *syntax.Tree) opSets {
	var s opSets
	s.dictColons = map[int]bool{}

	var walk func(n syntax.Node)
	walk = func(n syntax.Node) {
		switch n.Kind() {
		case syntax.KindString, syntax.KindComment:
			start, end := n.ByteRange()
			s.protected = append(s.protected, interval{start, end, n.Text()})
			return // string/comment contents are never recursed into
		case syntax.KindUnaryExpr:
			if n.ChildCount() > 0 {
				c0 := n.Child(0)
				if unaryOps[strings.TrimSpace(c0.Text())] {
					start, end := c0.ByteRange()
					s.unary = append(s.unary, interval{start, end, c0.Text()})
				}
			}
		case syntax.KindBinaryExpr:
			if op, ok := n.ChildByFieldName("operator"); ok {
				start, end := op.ByteRange()
				s.binary = append(s.binary, interval{start, end, op.Text()})
			} else if left, lok := n.ChildByFieldName("left"); lok {
				if right, rok := n.ChildByFieldName("right"); rok {
					if tok, ok := tokenBetween(n, left, right); ok {
						start, end := tok.ByteRange()
						s.binary = append(s.binary, interval{start, end, tok.Text()})
					}
				}
			}
		case syntax.KindLet:
			for i := 0; i < n.ChildCount(); i++ {
				c := n.Child(i)
				if c.ChildCount() == 0 && assignOps[strings.TrimSpace(c.Text())] {
					start, end := c.ByteRange()
					s.binary = append(s.binary, interval{start, end, c.Text()})
					break
				}
			}
		case syntax.KindDict:
			for i := 0; i < n.ChildCount(); i++ {
				c := n.Child(i)
				if c.ChildCount() == 0 && strings.TrimSpace(c.Text()) == ":" {
					start, _ := c.ByteRange()
					s.dictColons[start] = true
				}
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.Root())

	sort.Slice(s.protected, func(i, j int) bool { return s.protected[i].start < s.protected[j].start })
	sort.Slice(s.unary, func(i, j int) bool { return s.unary[i].start < s.unary[j].start })
	sort.Slice(s.binary, func(i, j int) bool { return s.binary[i].start < s.binary[j].start })
	return s
}

// tokenBetween finds the leaf child of n lying strictly between left and
// right: the operator found by elimination when a grammar node has no
// explicit "operator" field.
func tokenBetween(n, left, right syntax.Node) (syntax.Node, bool) {
	_, leftEnd := left.ByteRange()
	rightStart, _ := right.ByteRange()
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		start, end := c.ByteRange()
		if c.ChildCount() == 0 && start >= leftEnd && end <= rightStart && start < end {
			return c, true
		}
	}
	return syntax.Node{}, false
}

func findInterval(list []interval, offset int) (interval, bool) {
	for _, iv := range list {
		if iv.start == offset {
			return iv, true
		}
		if iv.start > offset {
			break
		}
	}
	return interval{}, false
}

func inProtected(list []interval, offset int) (interval, bool) {
	// list is sorted by start; linear scan is fine at line scale.
	for _, iv := range list {
		if offset >= iv.start && offset < iv.end {
			return iv, true
		}
		if iv.start > offset {
			break
		}
	}
	return interval{}, false
}

// Format reformats the whole document and returns both the new text and a
// single full-document TextEdit (spec.md §4.G: "minimal edit list or a
// single full-document replacement").
func Format(tree *syntax.Tree, buf *buffer.Buffer, opts config.FormatOptions) (string, []protocol.TextEdit) {
	sets := collect(tree)

	lines := make([]string, buf.LineCount())
	depth := 0
	for i := 0; i < buf.LineCount(); i++ {
		full := buf.Line(i)
		trimmedLeft := strings.TrimLeft(full, " \t")
		leading := len(full) - len(trimmedLeft)
		continuation := strings.HasPrefix(trimmedLeft, `\`)

		trailEnd := len(full)
		if opts.TrimTrailingWhitespace {
			trailEnd = len(strings.TrimRight(full, " \t\r"))
		}
		if trailEnd < leading {
			trailEnd = leading
		}
		interior := full[leading:trailEnd]

		if interior == "" {
			lines[i] = ""
			continue
		}

		kw := classify(strings.TrimRight(interior, " \t"))
		lineDepth := depth
		switch kw {
		case kwClose, kwMid:
			if lineDepth > 0 {
				lineDepth--
			}
		}

		indentCols := lineDepth * effectiveIndentWidth(opts)
		if continuation {
			indentCols += opts.LineContinuationIndent
		}

		lineStartByte := buf.Offset(protocol.Position{Line: i, Character: 0})
		content := processContent(interior, lineStartByte+leading, sets, opts)
		lines[i] = makeIndent(indentCols, opts) + content

		switch kw {
		case kwOpen:
			depth++
		case kwClose:
			if depth > 0 {
				depth--
			}
		}
	}

	if opts.InsertFinalNewline && len(lines) > 0 && lines[len(lines)-1] != "" {
		lines = append(lines, "")
	}

	newText := strings.Join(lines, "\n")
	edit := protocol.TextEdit{
		Range:   buf.Range(0, len(buf.Bytes())),
		NewText: newText,
	}
	return newText, []protocol.TextEdit{edit}
}

func effectiveIndentWidth(opts config.FormatOptions) int {
	if opts.IndentWidth <= 0 {
		return 2
	}
	return opts.IndentWidth
}

// makeIndent renders cols indentation columns as spaces, or as tabs (at an
// assumed tabstop of 8) plus a spaces remainder when use_tabs is set
// (spec.md §4.G step 2).
func makeIndent(cols int, opts config.FormatOptions) string {
	if cols <= 0 {
		return ""
	}
	if !opts.UseTabs {
		return strings.Repeat(" ", cols)
	}
	const tabstop = 8
	tabs := cols / tabstop
	rem := cols % tabstop
	return strings.Repeat("\t", tabs) + strings.Repeat(" ", rem)
}

// processContent applies steps 4-6 of spec.md §4.G to one line's interior
// text (leading/trailing whitespace already stripped), using absStart (the
// interior's byte offset in the original buffer) to consult the tree-
// derived spans collected by collect.
func processContent(s string, absStart int, sets opSets, opts config.FormatOptions) string {
	var b strings.Builder
	i := 0
	for i < len(s) {
		abs := absStart + i

		if iv, ok := inProtected(sets.protected, abs); ok {
			end := iv.end - absStart
			if end > len(s) {
				end = len(s)
			}
			if end <= i {
				end = i + 1
			}
			b.WriteString(s[i:end])
			i = end
			continue
		}

		if iv, ok := findInterval(sets.unary, abs); ok && opts.SpaceAroundOperators {
			trimTrailingSpace(&b)
			b.WriteString(iv.text)
			i += len(iv.text)
			i += skipSpaces(s, i)
			continue
		}

		if iv, ok := findInterval(sets.binary, abs); ok && opts.SpaceAroundOperators {
			trimTrailingSpace(&b)
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(iv.text)
			b.WriteByte(' ')
			i += len(iv.text)
			i += skipSpaces(s, i)
			continue
		}

		switch s[i] {
		case ',':
			b.WriteByte(',')
			j := i + 1 + skipSpaces(s, i+1)
			if opts.SpaceAfterComma && j < len(s) && s[j] != ')' && s[j] != ']' && s[j] != '}' && s[j] != ',' {
				b.WriteByte(' ')
			}
			i = j
			continue
		case ':':
			if sets.dictColons[abs] {
				b.WriteByte(':')
				j := i + 1 + skipSpaces(s, i+1)
				if opts.SpaceAfterColon && j < len(s) {
					b.WriteByte(' ')
				}
				i = j
				continue
			}
		case ' ', '\t':
			n := skipSpaces(s, i)
			if opts.NormalizeSpaces {
				if b.Len() > 0 && !endsWithSpace(b.String()) {
					b.WriteByte(' ')
				}
			} else {
				b.WriteString(s[i : i+n])
			}
			i += n
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func skipSpaces(s string, i int) int {
	n := 0
	for i+n < len(s) && (s[i+n] == ' ' || s[i+n] == '\t') {
		n++
	}
	return n
}

func endsWithSpace(s string) bool {
	return len(s) > 0 && s[len(s)-1] == ' '
}

func trimTrailingSpace(b *strings.Builder) {
	s := b.String()
	trimmed := strings.TrimRight(s, " \t")
	if len(trimmed) == len(s) {
		return
	}
	b.Reset()
	b.WriteString(trimmed)
}
