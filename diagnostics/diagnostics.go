// Package diagnostics evaluates the lint rule registry spec.md §4.E and
// §9 describe against a document's parse tree and symbol table, applies
// inline suppression directives, and exposes the canonical key-notation
// lookup the refactor package's quick fixes use.
package diagnostics

import (
	"regexp"
	"sort"
	"strings"

	"hjkls.dev/hjkls/buffer"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
	"hjkls.dev/hjkls/syntax"
	"hjkls.dev/hjkls/workspace"
)

// Rule is the fixed interface every lint check implements (DESIGN NOTES
// "dynamic dispatch for diagnostic rules"). Category and ID combine into
// the diagnostic's "category#rule" code.
type Rule interface {
	ID() string
	Category() string
	Severity() int
	Run(rc *RunContext) []protocol.Diagnostic
}

// RunContext bundles the state a rule needs. Index may be nil when no
// workspace is configured (e.g. a single scratch buffer).
type RunContext struct {
	Tree   *syntax.Tree
	Table  *symbols.Table
	Index  *workspace.Index
	Buffer *buffer.Buffer
}

// Code builds the "category#rule" diagnostic code for r.
func Code(r Rule) string { return r.Category() + "#" + r.ID() }

// Registry orders rules for deterministic output (DESIGN NOTES).
type Registry struct {
	rules []Rule
}

// DefaultRegistry returns the registry of every rule spec.md §4.E defines,
// in a fixed, deterministic order: correctness, then suspicious, then style.
func DefaultRegistry() *Registry {
	return &Registry{rules: []Rule{
		syntaxErrorRule{},
		undefinedFunctionRule{},
		scopeViolationRule{},
		argumentCountMismatchRule{},

		normalBangRule{},
		matchCaseRule{},
		autocmdGroupRule{},
		setCompatibleRule{},
		vim9ScriptPositionRule{},

		doubleDotRule{},
		functionBangRule{},
		abortRule{},
		singleQuoteRule{},
		keyNotationRule{},
		plugNoremapRule{},
	}}
}

// Rules returns the registered rules in evaluation order.
func (reg *Registry) Rules() []Rule { return reg.rules }

// Engine runs the registry against a document and applies suppression
// directives before publishing (spec.md §4.E "Emission policy").
type Engine struct {
	registry *Registry
}

// NewEngine creates an Engine over the default rule registry.
func NewEngine() *Engine {
	return &Engine{registry: DefaultRegistry()}
}

// Run produces the full diagnostic set for one document refresh.
func (e *Engine) Run(rc *RunContext) []protocol.Diagnostic {
	var all []protocol.Diagnostic
	for _, r := range e.registry.Rules() {
		for _, d := range r.Run(rc) {
			if d.Code == "" {
				d.Code = Code(r)
			}
			if d.Severity == 0 {
				d.Severity = r.Severity()
			}
			all = append(all, d)
		}
	}

	directives := ParseSuppressions(rc.Buffer)
	out := all[:0:0]
	for _, d := range all {
		if !isSuppressed(d, directives) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range.Start.Less(out[j].Range.Start)
	})
	return out
}

// Directive is a parsed suppression comment (spec.md §3 "Suppression directive").
type Directive struct {
	Line       int  // 0-indexed line the comment occupies
	NextLine   bool // true for hjkls:ignore-next-line, false for hjkls:ignore
	Rules      map[string]bool // nil/empty means "any rule"
}

// covers reports whether d suppresses a diagnostic whose primary line is
// primaryLine and whose code is code.
func (d Directive) covers(primaryLine int, code string) bool {
	if len(d.Rules) > 0 && !d.Rules[code] {
		return false
	}
	if d.NextLine {
		return primaryLine == d.Line+1
	}
	return primaryLine > d.Line
}

var suppressionRe = regexp.MustCompile(`^\s*["#]\s*hjkls:(ignore-next-line|ignore)\b\s*(.*)$`)

// ParseSuppressions scans buf line by line for suppression comments
// (spec.md §4.E "Comment detection uses a line-start heuristic").
func ParseSuppressions(buf *buffer.Buffer) []Directive {
	var out []Directive
	for i := 0; i < buf.LineCount(); i++ {
		line := buf.Line(i)
		m := suppressionRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		d := Directive{Line: i, NextLine: m[1] == "ignore-next-line"}
		if rest := strings.TrimSpace(m[2]); rest != "" {
			d.Rules = map[string]bool{}
			for _, id := range strings.Split(rest, ",") {
				id = strings.TrimSpace(id)
				if id != "" {
					d.Rules[id] = true
				}
			}
		}
		out = append(out, d)
	}
	return out
}

func isSuppressed(d protocol.Diagnostic, directives []Directive) bool {
	primaryLine := d.Range.Start.Line
	for _, dir := range directives {
		if dir.covers(primaryLine, d.Code) {
			return true
		}
	}
	return false
}
