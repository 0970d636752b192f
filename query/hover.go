package query

import (
	"fmt"
	"strings"

	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
)

// Hover implements textDocument/hover (spec.md §4.F).
func (c *Context) Hover(pos protocol.Position) *protocol.Hover {
	n, ok := c.identifierAt(pos)
	if !ok {
		return nil
	}
	raw := n.Text()
	scope, name := scopedName(raw)
	rng := n.Range()

	if fn, ok := builtins.Lookup(name); ok {
		return &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: "markdown", Value: fmt.Sprintf("```vim\n%s(...)\n```\n%s", fn.Name, fn.Doc)},
			Range:    &rng,
		}
	}

	if strings.Contains(raw, "#") && c.Index != nil {
		if path, sym, found := c.Index.LookupAutoload(raw); found {
			value := fmt.Sprintf("autoload: `%s`", path)
			if sym != nil {
				value = fmt.Sprintf("```vim\n%s\n```\n%s", signatureText(sym), path)
			}
			return &protocol.Hover{Contents: protocol.MarkupContent{Kind: "markdown", Value: value}, Range: &rng}
		}
	}

	if sym := c.resolveLocal(scope, name); sym != nil {
		value := symbolHoverText(sym)
		return &protocol.Hover{Contents: protocol.MarkupContent{Kind: "markdown", Value: value}, Range: &rng}
	}

	if c.Index != nil {
		if refs := c.Index.Lookup(scope, name); len(refs) > 0 {
			return &protocol.Hover{Contents: protocol.MarkupContent{Kind: "markdown", Value: symbolHoverText(refs[len(refs)-1].Symbol)}, Range: &rng}
		}
	}
	return nil
}

func symbolHoverText(sym *symbols.Symbol) string {
	switch sym.Kind {
	case symbols.KindFunction, symbols.KindAutoloadFunction:
		return fmt.Sprintf("```vim\n%s\n```", signatureText(sym))
	default:
		return fmt.Sprintf("```vim\n%s%s\n```", scopePrefix(sym.Scope), sym.Name)
	}
}

// signatureText synthesizes "function! Name(args) [abort]" (spec.md §4.F).
func signatureText(sym *symbols.Symbol) string {
	var b strings.Builder
	b.WriteString("function")
	if sym.Bang {
		b.WriteString("!")
	}
	b.WriteString(" ")
	b.WriteString(scopePrefix(sym.Scope))
	b.WriteString(sym.Name)
	b.WriteString("(")
	for i, p := range sym.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
	}
	if sym.Variadic {
		if len(sym.Params) > 0 {
			b.WriteString(", ")
		}
		b.WriteString("...")
	}
	b.WriteString(")")
	if sym.Abort {
		b.WriteString(" abort")
	}
	return b.String()
}

func scopePrefix(s symbols.Scope) string {
	if s == symbols.ScopeUnscoped || s == symbols.ScopeGlobal {
		return ""
	}
	return string(s) + ":"
}
