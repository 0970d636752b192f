package diagnostics

import (
	"fmt"
	"regexp"
	"strings"

	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
)

func diag(rng protocol.Range, message string) protocol.Diagnostic {
	return protocol.Diagnostic{Range: rng, Message: message}
}

func walkNodes(n syntax.Node, visit func(syntax.Node)) {
	visit(n)
	for i := 0; i < n.ChildCount(); i++ {
		walkNodes(n.Child(i), visit)
	}
}

// syntaxErrorRule reports the grammar's own ERROR/MISSING nodes, skipping
// the `<Cmd>...<CR>` artifacts the parser flags as spurious (spec.md §4.B).
type syntaxErrorRule struct{}

func (syntaxErrorRule) ID() string       { return "syntax_error" }
func (syntaxErrorRule) Category() string { return "correctness" }
func (syntaxErrorRule) Severity() int    { return protocol.SeverityError }

func (syntaxErrorRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	seen := map[string]bool{}
	walkNodes(rc.Tree.Root(), func(n syntax.Node) {
		if !n.IsError() && !n.IsMissing() {
			return
		}
		if syntax.IsSpuriousCmdError(n) {
			return
		}
		rng := n.Range()
		key := fmt.Sprintf("%d:%d", rng.Start.Line, rng.Start.Character)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, diag(rng, "syntax error"))
	})
	return out
}

// scopeViolationRule flags l: and a: references outside a function body
// (spec.md §4.E, scenario 2).
type scopeViolationRule struct{}

func (scopeViolationRule) ID() string       { return "scope_violation" }
func (scopeViolationRule) Category() string { return "correctness" }
func (scopeViolationRule) Severity() int    { return protocol.SeverityError }

func (scopeViolationRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, r := range rc.Table.References {
		if r.Enclosing != nil {
			continue
		}
		if r.Scope != symbols.ScopeLocal && r.Scope != symbols.ScopeArgument {
			continue
		}
		out = append(out, diag(r.Range, fmt.Sprintf("%s: used outside a function", string(r.Scope)+":"+r.Name)))
	}
	for _, v := range rc.Table.Variables {
		if v.Parent == nil && (v.Scope == symbols.ScopeLocal || v.Scope == symbols.ScopeArgument) {
			out = append(out, diag(v.NameRange, fmt.Sprintf("%s: used outside a function", string(v.Scope)+":"+v.Name)))
		}
	}
	return out
}

// undefinedFunctionRule flags call sites that resolve against nothing:
// not a builtin, not a local symbol, not a workspace symbol, not a
// successful autoload lookup, and not a callable-bearing variable
// (spec.md §4.E).
type undefinedFunctionRule struct{}

func (undefinedFunctionRule) ID() string       { return "undefined_function" }
func (undefinedFunctionRule) Category() string { return "correctness" }
func (undefinedFunctionRule) Severity() int    { return protocol.SeverityError }

func (undefinedFunctionRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, r := range rc.Table.References {
		if !r.IsCall {
			continue
		}
		if isSuppressedCallTarget(r) {
			continue
		}
		if _, ok := builtins.Lookup(r.Name); ok {
			continue
		}
		if r.Resolved != nil {
			continue
		}
		if strings.Contains(r.Name, "#") {
			if rc.Index != nil {
				if _, _, found := rc.Index.LookupAutoload(r.Name); found {
					continue
				}
			}
			out = append(out, diag(r.Range, fmt.Sprintf("undefined function: %s", r.Name)))
			continue
		}
		if rc.Index != nil {
			if refs := rc.Index.Lookup(r.Scope, r.Name); len(refs) > 0 {
				continue
			}
			if r.Scope == symbols.ScopeUnscoped {
				if refs := rc.Index.Lookup(symbols.ScopeGlobal, r.Name); len(refs) > 0 {
					continue
				}
			}
		}
		out = append(out, diag(r.Range, fmt.Sprintf("undefined function: %s", r.Name)))
	}
	return out
}

// isSuppressedCallTarget reports the cases spec.md §4.E exempts from
// undefined_function: self.*, a:*, l:*, dict-subscript, and lambda-variable
// calls, recognized through callable-bearing local resolution.
func isSuppressedCallTarget(r *symbols.Reference) bool {
	if r.Scope == symbols.ScopeArgument || r.Scope == symbols.ScopeLocal {
		return true
	}
	if strings.HasPrefix(r.Name, "self.") || strings.Contains(r.Name, ".") {
		return true
	}
	if r.Resolved != nil && r.Resolved.CallableBearing {
		return true
	}
	return false
}

// argumentCountMismatchRule flags call sites whose argument count falls
// outside the declared [min, max] interval (spec.md §4.E, scenario 3).
type argumentCountMismatchRule struct{}

func (argumentCountMismatchRule) ID() string       { return "argument_count_mismatch" }
func (argumentCountMismatchRule) Category() string { return "correctness" }
func (argumentCountMismatchRule) Severity() int    { return protocol.SeverityError }

func (argumentCountMismatchRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, r := range rc.Table.References {
		if !r.IsCall || r.ArgCount < 0 {
			continue
		}
		var min, max int
		var name string
		resolvedIsFunction := r.Resolved != nil && (r.Resolved.Kind == symbols.KindFunction || r.Resolved.Kind == symbols.KindAutoloadFunction)
		if fn, ok := builtins.Lookup(r.Name); ok {
			min, max, name = fn.Min, fn.Max, fn.Name
		} else if resolvedIsFunction {
			min, max, name = r.Resolved.MinArgs, r.Resolved.MaxArgs, r.Resolved.Name
		} else {
			continue
		}
		if r.ArgCount < min || (max >= 0 && r.ArgCount > max) {
			out = append(out, diag(r.Range, fmt.Sprintf("%s: expected %s arguments, got %d", name, arityString(min, max), r.ArgCount)))
		}
	}
	return out
}

func arityString(min, max int) string {
	switch {
	case max < 0:
		return fmt.Sprintf("at least %d", min)
	case min == max:
		return fmt.Sprintf("%d", min)
	default:
		return fmt.Sprintf("%d to %d", min, max)
	}
}

// normalBangRule flags `normal` commands without `!` (spec.md §4.E, scenario 5).
type normalBangRule struct{}

func (normalBangRule) ID() string       { return "normal_bang" }
func (normalBangRule) Category() string { return "suspicious" }
func (normalBangRule) Severity() int    { return protocol.SeverityWarning }

var normalRe = regexp.MustCompile(`^\s*normal\s+\S`)

func (normalBangRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for i := 0; i < rc.Buffer.LineCount(); i++ {
		line := rc.Buffer.Line(i)
		if !normalRe.MatchString(line) {
			continue
		}
		start := strings.Index(line, "normal")
		rng := protocol.Range{
			Start: protocol.Position{Line: i, Character: start},
			End:   protocol.Position{Line: i, Character: start + len("normal")},
		}
		out = append(out, diag(rng, "normal without !"))
	}
	return out
}

// matchCaseRule flags `=~`/`!~` not followed by `#` or `?` (spec.md §4.E).
type matchCaseRule struct{}

func (matchCaseRule) ID() string       { return "match_case" }
func (matchCaseRule) Category() string { return "suspicious" }
func (matchCaseRule) Severity() int    { return protocol.SeverityWarning }

var matchCaseRe = regexp.MustCompile(`[=!]~(?:[^#?]|$)`)

func (matchCaseRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for i := 0; i < rc.Buffer.LineCount(); i++ {
		line := rc.Buffer.Line(i)
		for _, m := range matchCaseRe.FindAllStringIndex(line, -1) {
			rng := protocol.Range{
				Start: protocol.Position{Line: i, Character: m[0]},
				End:   protocol.Position{Line: i, Character: m[0] + 2},
			}
			out = append(out, diag(rng, "=~/!~ without explicit case sensitivity (# or ?)"))
		}
	}
	return out
}

// autocmdGroupRule flags `autocmd` at script level with no enclosing
// augroup and no inline group argument (spec.md §4.E).
type autocmdGroupRule struct{}

func (autocmdGroupRule) ID() string       { return "autocmd_group" }
func (autocmdGroupRule) Category() string { return "suspicious" }
func (autocmdGroupRule) Severity() int    { return protocol.SeverityWarning }

func (autocmdGroupRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	var walk func(n syntax.Node, inAugroup bool)
	walk = func(n syntax.Node, inAugroup bool) {
		switch n.Kind() {
		case syntax.KindAugroup:
			inAugroup = true
		case syntax.KindAutocmd:
			if !inAugroup && !hasInlineGroup(n) {
				out = append(out, diag(n.Range(), "autocmd outside augroup with no inline group"))
			}
		}
		for i := 0; i < n.ChildCount(); i++ {
			walk(n.Child(i), inAugroup)
		}
	}
	walk(rc.Tree.Root(), false)
	return out
}

func hasInlineGroup(n syntax.Node) bool {
	fields := strings.Fields(strings.TrimSpace(n.Text()))
	if len(fields) < 2 {
		return false
	}
	second := fields[1]
	return second != "" && !strings.Contains(second, ",") && !builtins.IsEvent(second) && second != "*"
}

// setCompatibleRule flags `set compatible`/`set cp` (spec.md §4.E).
type setCompatibleRule struct{}

func (setCompatibleRule) ID() string       { return "set_compatible" }
func (setCompatibleRule) Category() string { return "suspicious" }
func (setCompatibleRule) Severity() int    { return protocol.SeverityWarning }

var setCompatibleRe = regexp.MustCompile(`(?m)^\s*set\s+(compatible|cp)\b`)

func (setCompatibleRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for i := 0; i < rc.Buffer.LineCount(); i++ {
		line := rc.Buffer.Line(i)
		if m := setCompatibleRe.FindStringIndex(line); m != nil {
			rng := protocol.Range{Start: protocol.Position{Line: i, Character: m[0]}, End: protocol.Position{Line: i, Character: len(line)}}
			out = append(out, diag(rng, "set compatible disables Vim-specific features"))
		}
	}
	return out
}

// vim9ScriptPositionRule flags a `vim9script` token that is not the first
// non-empty, non-comment line (spec.md §4.E).
type vim9ScriptPositionRule struct{}

func (vim9ScriptPositionRule) ID() string       { return "vim9script_position" }
func (vim9ScriptPositionRule) Category() string { return "suspicious" }
func (vim9ScriptPositionRule) Severity() int    { return protocol.SeverityWarning }

func (vim9ScriptPositionRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	seenContent := false
	for i := 0; i < rc.Buffer.LineCount(); i++ {
		line := strings.TrimSpace(rc.Buffer.Line(i))
		if line == "" {
			continue
		}
		isVim9 := line == "vim9script" || strings.HasPrefix(line, "vim9script ")
		isComment := strings.HasPrefix(line, "\"") || strings.HasPrefix(line, "#")
		if isVim9 && seenContent {
			rng := protocol.Range{Start: protocol.Position{Line: i, Character: 0}, End: protocol.Position{Line: i, Character: len(line)}}
			out = append(out, diag(rng, "vim9script must be the first statement"))
		}
		if !isComment {
			seenContent = true
		}
	}
	return out
}

// doubleDotRule flags `.` used for string concatenation where `..` is
// idiomatic, excluding numeric and dict-field contexts (spec.md §4.E).
type doubleDotRule struct{}

func (doubleDotRule) ID() string       { return "double_dot" }
func (doubleDotRule) Category() string { return "style" }
func (doubleDotRule) Severity() int    { return protocol.SeverityHint }

var singleDotOperatorRe = regexp.MustCompile(`[^.]\.[^.]`)

func (doubleDotRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	walkNodes(rc.Tree.Root(), func(n syntax.Node) {
		if n.Kind() != syntax.KindBinaryExpr {
			return
		}
		left, okLeft := n.ChildByFieldName("left")
		right, okRight := n.ChildByFieldName("right")
		if !okLeft || !okRight {
			return
		}
		if isNumericLiteral(left) || isNumericLiteral(right) {
			return
		}
		op, ok := n.ChildByFieldName("operator")
		var opText string
		if ok {
			opText = strings.TrimSpace(op.Text())
		} else if m := singleDotOperatorRe.FindString(" " + n.Text() + " "); m != "" {
			opText = "."
		}
		if opText == "." {
			out = append(out, diag(n.Range(), "use .. for string concatenation"))
		}
	})
	return out
}

func isNumericLiteral(n syntax.Node) bool {
	t := strings.TrimSpace(n.Text())
	if t == "" {
		return false
	}
	for _, c := range t {
		if c < '0' || c > '9' {
			if c != '.' && c != '-' {
				return false
			}
		}
	}
	return true
}

// functionBangRule flags `function!` for a script-local definition
// (spec.md §4.E).
type functionBangRule struct{}

func (functionBangRule) ID() string       { return "function_bang" }
func (functionBangRule) Category() string { return "style" }
func (functionBangRule) Severity() int    { return protocol.SeverityHint }

func (functionBangRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, fn := range rc.Table.Functions {
		if fn.Bang && fn.Scope == symbols.ScopeScript {
			out = append(out, diag(fn.NameRange, "function! is redundant for a script-local function"))
		}
	}
	return out
}

// abortRule flags a function definition without `abort` (spec.md §4.E).
type abortRule struct{}

func (abortRule) ID() string       { return "abort" }
func (abortRule) Category() string { return "style" }
func (abortRule) Severity() int    { return protocol.SeverityHint }

func (abortRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, fn := range rc.Table.Functions {
		if !fn.Abort {
			out = append(out, diag(fn.NameRange, "function definition is missing abort"))
		}
	}
	return out
}

// singleQuoteRule flags a double-quoted string literal with no escape
// sequence and no embedded single quote (spec.md §4.E).
type singleQuoteRule struct{}

func (singleQuoteRule) ID() string       { return "single_quote" }
func (singleQuoteRule) Category() string { return "style" }
func (singleQuoteRule) Severity() int    { return protocol.SeverityHint }

func (singleQuoteRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	walkNodes(rc.Tree.Root(), func(n syntax.Node) {
		if n.Kind() != syntax.KindString {
			return
		}
		text := n.Text()
		if !strings.HasPrefix(text, `"`) || !strings.HasSuffix(text, `"`) || len(text) < 2 {
			return
		}
		inner := text[1 : len(text)-1]
		if strings.Contains(inner, `\`) || strings.Contains(inner, `'`) {
			return
		}
		out = append(out, diag(n.Range(), "prefer a single-quoted string literal"))
	})
	return out
}

// keyNotationRule flags key tokens not in canonical form anywhere in the
// text of a mapping command; left- and right-hand sides are not told apart.
type keyNotationRule struct{}

func (keyNotationRule) ID() string       { return "key_notation" }
func (keyNotationRule) Category() string { return "style" }
func (keyNotationRule) Severity() int    { return protocol.SeverityHint }

var keyTokenRe = regexp.MustCompile(`<([A-Za-z0-9-]+)>`)

var canonicalKeys = map[string]string{
	"cr": "<CR>", "esc": "<Esc>", "up": "<Up>", "down": "<Down>",
	"left": "<Left>", "right": "<Right>", "tab": "<Tab>", "bs": "<BS>",
	"space": "<Space>", "del": "<Del>", "home": "<Home>", "end": "<End>",
}

func (keyNotationRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	walkNodes(rc.Tree.Root(), func(n syntax.Node) {
		if n.Kind() != syntax.KindMapCmd {
			return
		}
		text := n.Text()
		for _, m := range keyTokenRe.FindAllStringSubmatchIndex(text, -1) {
			tok := text[m[0]:m[1]]
			inner := strings.ToLower(text[m[2]:m[3]])
			if canonical, ok := canonicalKeys[inner]; ok && canonical != tok {
				rng := n.Range()
				out = append(out, diag(rng, fmt.Sprintf("use canonical key notation %s instead of %s", canonical, tok)))
			}
		}
	})
	return out
}

// CanonicalKeyNotation exposes the canonical spelling for a key token's
// lowercase inner name, for the matching code action.
func CanonicalKeyNotation(tok string) (string, bool) {
	inner := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(tok, "<"), ">"))
	c, ok := canonicalKeys[inner]
	return c, ok
}

// plugNoremapRule flags non-noremap mapping commands whose right-hand side
// contains <Plug> (spec.md §4.E).
type plugNoremapRule struct{}

func (plugNoremapRule) ID() string       { return "plug_noremap" }
func (plugNoremapRule) Category() string { return "style" }
func (plugNoremapRule) Severity() int    { return protocol.SeverityHint }

var mapCmdRe = regexp.MustCompile(`(?m)^\s*(n|v|x|i|c|o|s)?map\b(.*<Plug>.*)$`)

func (plugNoremapRule) Run(rc *RunContext) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for i := 0; i < rc.Buffer.LineCount(); i++ {
		line := rc.Buffer.Line(i)
		if m := mapCmdRe.FindStringIndex(line); m != nil {
			rng := protocol.Range{Start: protocol.Position{Line: i, Character: 0}, End: protocol.Position{Line: i, Character: len(line)}}
			out = append(out, diag(rng, "use noremap with <Plug> mappings"))
		}
	}
	return out
}
