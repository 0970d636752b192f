package refactor

import (
	"regexp"
	"strings"

	"hjkls.dev/hjkls/diagnostics"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/query"
)

// CodeActions implements textDocument/codeAction: one quick fix per
// diagnostic in the requested range whose rule the fix table below knows
// how to repair (spec.md §4.H). Diagnostics outside rng, or from rules with
// no known fix, are silently skipped — the resolver never errors for "no
// actions available".
func CodeActions(c *query.Context, diags []protocol.Diagnostic, rng protocol.Range) []protocol.CodeAction {
	var out []protocol.CodeAction
	for _, d := range diags {
		if !overlaps(d.Range, rng) {
			continue
		}
		fix, ok := fixFor(c, d)
		if !ok {
			continue
		}
		out = append(out, fix)
	}
	return out
}

func overlaps(a, b protocol.Range) bool {
	return !b.End.Less(a.Start) && !a.End.Less(b.Start)
}

func fixFor(c *query.Context, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	switch d.Code {
	case "suspicious#normal_bang":
		return normalBangFix(c, d)
	case "style#double_dot":
		return doubleDotFix(c, d)
	case "style#function_bang":
		return functionBangFix(c, d)
	case "style#key_notation":
		return keyNotationFix(c, d)
	}
	return protocol.CodeAction{}, false
}

// normalBangFix inserts "!" right after the bare "normal" keyword the
// diagnostic range already isolates.
func normalBangFix(c *query.Context, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	edit := protocol.TextEdit{Range: protocol.Range{Start: d.Range.End, End: d.Range.End}, NewText: "!"}
	return protocol.CodeAction{
		Title:       "Change to normal!",
		Kind:        protocol.CodeActionQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{c.URI: {edit}}},
	}, true
}

var singleDotOperatorRe = regexp.MustCompile(`([^.])\.([^.])`)

// doubleDotFix rewrites the single "." concatenation operator inside the
// diagnostic's range to "..". The rule's own range spans the whole
// binary_expression, so the replacement text is derived the same way the
// rule detected it: the one non-"." dot in that span.
func doubleDotFix(c *query.Context, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	startByte := c.Buf.Offset(d.Range.Start)
	endByte := c.Buf.Offset(d.Range.End)
	if endByte <= startByte {
		return protocol.CodeAction{}, false
	}
	text := string(c.Buf.Bytes()[startByte:endByte])
	fixed := singleDotOperatorRe.ReplaceAllString(text, "$1..$2")
	if fixed == text {
		return protocol.CodeAction{}, false
	}
	edit := protocol.TextEdit{Range: d.Range, NewText: fixed}
	return protocol.CodeAction{
		Title:       "Use .. for string concatenation",
		Kind:        protocol.CodeActionQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{c.URI: {edit}}},
	}, true
}

// functionBangFix removes the redundant "!" from the "function!" keyword of
// the definition whose name range the diagnostic points at.
func functionBangFix(c *query.Context, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	for _, fn := range c.Table.Functions {
		if fn.NameRange != d.Range {
			continue
		}
		defStart := c.Buf.Offset(fn.DefRange.Start)
		defEnd := c.Buf.Offset(fn.DefRange.End)
		if defEnd > len(c.Buf.Bytes()) {
			defEnd = len(c.Buf.Bytes())
		}
		text := string(c.Buf.Bytes()[defStart:defEnd])
		idx := strings.Index(text, "function!")
		if idx < 0 {
			return protocol.CodeAction{}, false
		}
		bangOffset := defStart + idx + len("function")
		bangRange := c.Buf.Range(bangOffset, bangOffset+1)
		edit := protocol.TextEdit{Range: bangRange, NewText: ""}
		return protocol.CodeAction{
			Title:       "Remove redundant !",
			Kind:        protocol.CodeActionQuickFix,
			Diagnostics: []protocol.Diagnostic{d},
			Edit:        protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{c.URI: {edit}}},
		}, true
	}
	return protocol.CodeAction{}, false
}

// keyNotationFix replaces the non-canonical key token the diagnostic
// message names with its canonical spelling.
func keyNotationFix(c *query.Context, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	idx := strings.LastIndex(d.Message, "instead of ")
	if idx < 0 {
		return protocol.CodeAction{}, false
	}
	tok := strings.TrimSpace(d.Message[idx+len("instead of "):])
	canonical, ok := diagnostics.CanonicalKeyNotation(tok)
	if !ok {
		return protocol.CodeAction{}, false
	}

	startByte := c.Buf.Offset(d.Range.Start)
	endByte := c.Buf.Offset(d.Range.End)
	if endByte > len(c.Buf.Bytes()) {
		endByte = len(c.Buf.Bytes())
	}
	text := string(c.Buf.Bytes()[startByte:endByte])
	offset := strings.Index(text, tok)
	if offset < 0 {
		return protocol.CodeAction{}, false
	}
	tokStart := startByte + offset
	tokRange := c.Buf.Range(tokStart, tokStart+len(tok))
	edit := protocol.TextEdit{Range: tokRange, NewText: canonical}
	return protocol.CodeAction{
		Title:       "Use canonical key notation " + canonical,
		Kind:        protocol.CodeActionQuickFix,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        protocol.WorkspaceEdit{Changes: map[string][]protocol.TextEdit{c.URI: {edit}}},
	}, true
}
