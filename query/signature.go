package query

import (
	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/syntax"
)

// SignatureHelp implements textDocument/signatureHelp (spec.md §4.F):
// finds the innermost enclosing call, then computes the active parameter
// as the comma index within the argument text up to the cursor, respecting
// string literals and nested call/bracket depth.
func (c *Context) SignatureHelp(pos protocol.Position) *protocol.SignatureHelp {
	offset := c.Buf.Offset(pos)
	callNode, fnNode, ok := enclosingCall(c.Tree.Root(), offset)
	if !ok {
		return nil
	}
	raw := fnNode.Text()
	scope, name := scopedName(raw)

	var sig protocol.SignatureInformation
	if fn, ok := builtins.Lookup(name); ok {
		sig = builtinSignature(fn)
	} else if sym := c.resolveLocal(scope, name); sym != nil {
		sig = protocol.SignatureInformation{Label: signatureText(sym)}
	} else {
		return nil
	}

	active := activeParameter(c.Buf.Bytes(), callNode, offset)
	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{sig},
		ActiveSignature: 0,
		ActiveParameter: active,
	}
}

// enclosingCall finds the innermost call_expression node containing
// offset, and returns its function-name child.
func enclosingCall(n syntax.Node, offset int) (call, fn syntax.Node, ok bool) {
	start, end := n.ByteRange()
	if offset < start || offset > end {
		return syntax.Node{}, syntax.Node{}, false
	}
	var bestCall, bestFn syntax.Node
	found := false
	var walk func(syntax.Node)
	walk = func(cur syntax.Node) {
		cStart, cEnd := cur.ByteRange()
		if offset < cStart || offset > cEnd {
			return
		}
		if cur.Kind() == syntax.KindCall {
			if f, ok := cur.ChildByFieldName("function"); ok {
				bestCall, bestFn, found = cur, f, true
			}
		}
		for i := 0; i < cur.ChildCount(); i++ {
			walk(cur.Child(i))
		}
	}
	walk(n)
	return bestCall, bestFn, found
}

// activeParameter returns the 0-indexed active parameter: the count of
// top-level commas between the call's opening paren and offset.
func activeParameter(source []byte, call syntax.Node, offset int) int {
	start, end := call.ByteRange()
	if offset > end {
		offset = end
	}
	if offset < start {
		return 0
	}
	text := source[start:offset]
	depth := 0
	active := 0
	var inString byte
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case inString != 0:
			if ch == inString && (i == 0 || text[i-1] != '\\') {
				inString = 0
			}
		case ch == '\'' || ch == '"':
			inString = ch
		case ch == '(' || ch == '[' || ch == '{':
			depth++
		case ch == ')' || ch == ']' || ch == '}':
			depth--
		case ch == ',' && depth == 1:
			active++
		}
	}
	return active
}

func builtinSignature(fn builtins.Function) protocol.SignatureInformation {
	return protocol.SignatureInformation{
		Label:         fn.Name + "(...)",
		Documentation: fn.Doc,
	}
}
