// Package buffer holds the live UTF-8 text of a document and the
// line/column <-> byte offset mapping the rest of hjkls builds on.
//
// LSP positions are (line, UTF-16 code unit) pairs. Buffer is the only
// layer that knows this; everything downstream (the parser, the symbol
// table, query resolvers) works in byte offsets or in [protocol.Range]
// values Buffer has already translated.
package buffer

import (
	"unicode/utf8"

	"hjkls.dev/hjkls/protocol"
)

// Buffer is a mutable UTF-8 text document with position translation.
//
// A Buffer is not safe for concurrent use; callers serialize access per
// document (see the document package), matching spec.md §5's mailbox model.
type Buffer struct {
	text        []byte
	lineOffsets []int // byte offset of the start of each line; lineOffsets[0] == 0
}

// ErrInvalidUTF8 is returned by Validate when text is not well-formed UTF-8.
// Per spec.md §4.A this is a protocol-level error, not a clamped value.
var ErrInvalidUTF8 = errInvalidUTF8{}

type errInvalidUTF8 struct{}

func (errInvalidUTF8) Error() string { return "document text is not valid UTF-8" }

// Validate reports ErrInvalidUTF8 if text is not well-formed UTF-8.
func Validate(text string) error {
	if !utf8.ValidString(text) {
		return ErrInvalidUTF8
	}
	return nil
}

// New creates a Buffer over the initial document text.
func New(text string) *Buffer {
	b := &Buffer{}
	b.Reset(text)
	return b
}

// Reset replaces the entire document with text.
func (b *Buffer) Reset(text string) {
	b.text = []byte(text)
	b.indexLines()
}

// Text returns the current document text.
func (b *Buffer) Text() string {
	return string(b.text)
}

// Bytes returns the current document content. The returned slice must not
// be mutated; it is shared with the Buffer's internal storage.
func (b *Buffer) Bytes() []byte {
	return b.text
}

// LineCount returns the number of lines in the document. A document with no
// trailing newline still has at least one line.
func (b *Buffer) LineCount() int {
	return len(b.lineOffsets)
}

// Line returns the text of the given 0-indexed line, without its terminator.
func (b *Buffer) Line(n int) string {
	if n < 0 || n >= len(b.lineOffsets) {
		return ""
	}
	start := b.lineOffsets[n]
	end := len(b.text)
	if n+1 < len(b.lineOffsets) {
		end = b.lineOffsets[n+1]
	}
	line := b.text[start:end]
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return string(line)
}

// indexLines recomputes lineOffsets from text.
func (b *Buffer) indexLines() {
	b.lineOffsets = b.lineOffsets[:0]
	b.lineOffsets = append(b.lineOffsets, 0)
	for i, c := range b.text {
		if c == '\n' {
			b.lineOffsets = append(b.lineOffsets, i+1)
		}
	}
}

// Offset converts an LSP position to a byte offset, clamping out-of-range
// positions to the nearest valid offset rather than failing, per spec.md §4.A.
func (b *Buffer) Offset(pos protocol.Position) int {
	line := pos.Line
	if line < 0 {
		line = 0
	}
	if line >= len(b.lineOffsets) {
		return len(b.text)
	}
	start := b.lineOffsets[line]
	end := len(b.text)
	if line+1 < len(b.lineOffsets) {
		end = b.lineOffsets[line+1]
	}
	lineBytes := b.text[start:end]
	for len(lineBytes) > 0 && (lineBytes[len(lineBytes)-1] == '\n' || lineBytes[len(lineBytes)-1] == '\r') {
		lineBytes = lineBytes[:len(lineBytes)-1]
	}
	return start + utf16OffsetToByte(lineBytes, pos.Character)
}

// Position converts a byte offset into an LSP position, clamping offsets
// outside the document to its nearest boundary.
func (b *Buffer) Position(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}
	line := lineForOffset(b.lineOffsets, offset)
	start := b.lineOffsets[line]
	character := byteOffsetToUTF16(b.text[start:offset])
	return protocol.Position{Line: line, Character: character}
}

// Range converts a byte span into a protocol.Range.
func (b *Buffer) Range(startByte, endByte int) protocol.Range {
	return protocol.Range{Start: b.Position(startByte), End: b.Position(endByte)}
}

// Replace applies a single range replacement expressed in LSP positions,
// returning the byte-offset edit the syntax parser needs to reparse
// incrementally (spec.md §4.B, §9 "map LSP edit positions ... once").
func (b *Buffer) Replace(rng protocol.Range, newText string) Edit {
	startByte := b.Offset(rng.Start)
	endByte := b.Offset(rng.End)
	if endByte < startByte {
		startByte, endByte = endByte, startByte
	}

	var out []byte
	out = append(out, b.text[:startByte]...)
	out = append(out, newText...)
	out = append(out, b.text[endByte:]...)

	edit := Edit{
		StartByte:  startByte,
		OldEndByte: endByte,
		NewEndByte: startByte + len(newText),
		StartPoint: b.Position(startByte),
		OldEndPoint: b.Position(endByte),
	}

	b.text = out
	b.indexLines()
	edit.NewEndPoint = b.Position(edit.NewEndByte)
	return edit
}

// Edit describes a single text change in the coordinate system the syntax
// parser's incremental reparse expects (spec.md §4.B).
type Edit struct {
	StartByte, OldEndByte, NewEndByte int
	StartPoint, OldEndPoint, NewEndPoint protocol.Position
}

// lineForOffset returns the 0-indexed line containing byte offset off.
func lineForOffset(lineOffsets []int, off int) int {
	lo, hi := 0, len(lineOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if lineOffsets[mid] <= off {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// utf16OffsetToByte walks lineBytes (one line, no terminator semantics
// assumed) converting a UTF-16 code-unit offset into a byte offset.
func utf16OffsetToByte(lineBytes []byte, utf16Offset int) int {
	if utf16Offset <= 0 {
		return 0
	}
	units := 0
	i := 0
	for i < len(lineBytes) {
		r, size := utf8.DecodeRune(lineBytes[i:])
		if units >= utf16Offset {
			return i
		}
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		i += size
	}
	return len(lineBytes)
}

// byteOffsetToUTF16 returns the UTF-16 code-unit length of s.
func byteOffsetToUTF16(s []byte) int {
	units := 0
	for _, r := range string(s) {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}
