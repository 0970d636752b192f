// Package symbols walks a parsed Vim-script document and produces the
// per-document symbol table spec.md §4.C describes: function and variable
// definitions, their parameters and scopes, and every identifier reference
// and call site, in a single top-down pass over the syntax tree.
package symbols

import (
	"regexp"
	"strings"

	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/syntax"
)

// Kind distinguishes the four symbol categories spec.md §3 defines.
type Kind int

const (
	KindFunction Kind = iota
	KindVariable
	KindParameter
	KindAutoloadFunction
)

// Scope is the storage scope a symbol's name prefix (or enclosing function)
// assigns it.
type Scope string

const (
	ScopeScript     Scope = "s"
	ScopeGlobal     Scope = "g"
	ScopeBuffer     Scope = "b"
	ScopeWindow     Scope = "w"
	ScopeTab        Scope = "t"
	ScopeLocal      Scope = "l"
	ScopeArgument   Scope = "a"
	ScopeVimSpecial Scope = "v"
	ScopeUnscoped   Scope = ""
)

// Param is one parameter of a function symbol.
type Param struct {
	Name     string
	Optional bool // has a default value
}

// Symbol is a named entity recorded by the extractor: a function, a
// variable, a function parameter, or an autoload function stub.
type Symbol struct {
	Name      string
	Kind      Kind
	Scope     Scope
	DefRange  protocol.Range // the whole definition (function body, let statement, ...)
	NameRange protocol.Range // just the identifier, for go-to-definition

	// Function-only fields.
	Params    []Param
	Variadic  bool
	MinArgs   int // -1 is never used here; Min is always >= 0
	MaxArgs   int // -1 means unbounded (Open Question decision, SPEC_FULL.md §12.1)
	Abort     bool
	Bang      bool

	// CallableBearing marks a variable assigned a lambda, function('name'),
	// or a dict literal with method fields, so the undefined-call checker
	// can treat Var() and dict.method() as resolved (spec.md §4.C).
	CallableBearing bool

	// Parent is the enclosing function symbol for parameters and locals,
	// nil for script/global-level symbols.
	Parent *Symbol
}

// IsUnboundedMax reports whether s (a function symbol) accepts an unbounded
// number of trailing arguments via "...".
func (s *Symbol) IsUnboundedMax() bool { return s.MaxArgs < 0 }

// Reference is a single identifier occurrence: a read or a call. Definition
// occurrences (function names, let targets) are recorded as symbols, not as
// references.
type Reference struct {
	Name      string
	Scope     Scope
	Range     protocol.Range
	IsCall    bool
	ArgCount  int // number of call-site arguments; -1 when IsCall is false or unknown
	Resolved  *Symbol // nil if not resolved within this document
	Enclosing *Symbol // enclosing function, nil at script level
}

// Table is the complete per-document symbol state spec.md §3 calls the
// "derived per-document symbol table".
type Table struct {
	Functions  []*Symbol
	Variables  []*Symbol
	References []*Reference

	// byScope indexes every symbol, parameters and locals included, by
	// (scope, name) for fast lookup by resolvers and the diagnostic engine.
	byScope map[scopeKey][]*Symbol
}

type scopeKey struct {
	scope Scope
	name  string
}

// Lookup resolves name in scope against this document's symbols only.
func (t *Table) Lookup(scope Scope, name string) []*Symbol {
	return t.byScope[scopeKey{scope, name}]
}

// AllSymbols returns every function and variable symbol, functions first.
func (t *Table) AllSymbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.Functions)+len(t.Variables))
	out = append(out, t.Functions...)
	out = append(out, t.Variables...)
	return out
}

// scopedName splits "s:Foo" into (ScopeScript, "Foo"); a name with no
// recognized prefix is ScopeUnscoped (implicit global in legacy Vim script).
var scopePrefix = regexp.MustCompile(`^([sgbwtlav]):(.*)$`)

func scopedName(raw string) (Scope, string) {
	if m := scopePrefix.FindStringSubmatch(raw); m != nil {
		return Scope(m[1]), m[2]
	}
	if strings.HasPrefix(raw, "v:") {
		return ScopeVimSpecial, strings.TrimPrefix(raw, "v:")
	}
	return ScopeUnscoped, raw
}

// extractor holds the mutable state of one bottom-up walk.
type extractor struct {
	tree  *syntax.Tree
	table *Table
	fnStack []*Symbol // enclosing function, nil at top level
}

// Extract walks tree and produces its symbol table (spec.md §4.C).
func Extract(tree *syntax.Tree) *Table {
	t := &Table{byScope: make(map[scopeKey][]*Symbol)}
	ex := &extractor{tree: tree, table: t}
	ex.walk(tree.Root())
	return t
}

func (ex *extractor) current() *Symbol {
	if len(ex.fnStack) == 0 {
		return nil
	}
	return ex.fnStack[len(ex.fnStack)-1]
}

func (ex *extractor) addSymbol(s *Symbol) {
	switch s.Kind {
	case KindFunction, KindAutoloadFunction:
		ex.table.Functions = append(ex.table.Functions, s)
	default:
		ex.table.Variables = append(ex.table.Variables, s)
	}
	key := scopeKey{s.Scope, s.Name}
	ex.table.byScope[key] = append(ex.table.byScope[key], s)
}

func (ex *extractor) addReference(r *Reference) {
	if syms := ex.table.Lookup(r.Scope, r.Name); len(syms) > 0 {
		r.Resolved = syms[len(syms)-1]
	}
	ex.table.References = append(ex.table.References, r)
}

// walk performs the single top-down pass: each node is handled before its
// children, so that, e.g., a function's parameters are registered before the
// body is scanned for
// a:name references, matching the invariant "every parameter symbol has a
// parent function symbol" from the moment the body is visited.
func (ex *extractor) walk(n syntax.Node) {
	switch n.Kind() {
	case syntax.KindFunction:
		ex.walkFunction(n)
		return
	case syntax.KindLet:
		ex.walkLet(n)
		return
	case syntax.KindCall:
		fnNode := ex.walkCall(n)
		fnStart, fnEnd := fnNode.ByteRange()
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			cStart, cEnd := c.ByteRange()
			if fnNode.Valid() && cStart == fnStart && cEnd == fnEnd {
				continue
			}
			ex.walk(c)
		}
		return
	case syntax.KindIdentifier, syntax.KindScopedIdent:
		ex.walkIdentifier(n)
	case syntax.KindLambda:
		ex.walkLambda(n)
	}
	for i := 0; i < n.ChildCount(); i++ {
		ex.walk(n.Child(i))
	}
}

// walkFunction handles a function_definition node: name, bang, abort,
// parameter list, then the body with the new function pushed as the
// enclosing scope for argument and local resolution.
func (ex *extractor) walkFunction(n syntax.Node) {
	nameNode, hasName := n.ChildByFieldName("name")
	rawName := ""
	nameRange := n.Range()
	if hasName {
		rawName = nameNode.Text()
		nameRange = nameNode.Range()
	}

	scope, short := scopedName(rawName)
	kind := KindFunction
	if strings.Contains(rawName, "#") {
		kind = KindAutoloadFunction
		scope = ScopeGlobal
		short = rawName
	}

	sym := &Symbol{
		Name:      short,
		Kind:      kind,
		Scope:     scope,
		DefRange:  n.Range(),
		NameRange: nameRange,
		MinArgs:   0,
		MaxArgs:   0,
	}

	text := n.Text()
	sym.Bang = strings.HasPrefix(strings.TrimSpace(text), "function!")
	sym.Abort = strings.Contains(firstLine(text), "abort")

	if params, ok := n.ChildByFieldName("parameters"); ok {
		sym.Params, sym.Variadic = extractParams(params)
	}
	sym.MinArgs = requiredCount(sym.Params)
	if sym.Variadic {
		sym.MaxArgs = -1
	} else {
		sym.MaxArgs = len(sym.Params)
	}

	ex.addSymbol(sym)

	ex.fnStack = append(ex.fnStack, sym)
	for _, p := range sym.Params {
		ex.addSymbol(&Symbol{
			Name:      p.Name,
			Kind:      KindParameter,
			Scope:     ScopeArgument,
			DefRange:  n.Range(),
			NameRange: n.Range(),
			Parent:    sym,
		})
	}
	if body, ok := n.ChildByFieldName("body"); ok {
		ex.walk(body)
	} else {
		for i := 0; i < n.ChildCount(); i++ {
			c := n.Child(i)
			if c.Kind() == syntax.KindFunctionBody {
				ex.walk(c)
			}
		}
	}
	ex.fnStack = ex.fnStack[:len(ex.fnStack)-1]
}

// walkLet handles `let`/`const` binding targets, including dict-field
// assignments ("obj.method") which create a method symbol keyed by the
// full dotted name without deep object modelling (spec.md §4.C).
func (ex *extractor) walkLet(n syntax.Node) {
	target, ok := n.ChildByFieldName("name")
	if !ok {
		for i := 0; i < n.ChildCount(); i++ {
			if c := n.Child(i); c.Kind() == syntax.KindScopedIdent || c.Kind() == syntax.KindIdentifier || c.Kind() == syntax.KindDictField {
				target = c
				ok = true
				break
			}
		}
	}
	if !ok {
		for i := 0; i < n.ChildCount(); i++ {
			ex.walk(n.Child(i))
		}
		return
	}

	raw := target.Text()
	var scope Scope
	var name string
	kind := KindVariable
	if target.Kind() == syntax.KindDictField {
		scope = ScopeUnscoped
		name = raw
		kind = KindVariable
	} else {
		scope, name = scopedName(raw)
	}

	sym := &Symbol{
		Name:      name,
		Kind:      kind,
		Scope:     scope,
		DefRange:  n.Range(),
		NameRange: target.Range(),
		Parent:    ex.current(),
	}
	sym.CallableBearing = rhsIsCallable(n)
	ex.addSymbol(sym)

	// Walk every child except the binding target itself: the target has
	// already become a definition (sym above), not a reference, so letting
	// the generic identifier walk see it too would record it a second time
	// and double-report scope violations on l:/a: targets (spec.md §4.E
	// scenario 2 wants exactly one).
	targetStart, targetEnd := target.ByteRange()
	for i := 0; i < n.ChildCount(); i++ {
		c := n.Child(i)
		cStart, cEnd := c.ByteRange()
		if cStart == targetStart && cEnd == targetEnd {
			continue
		}
		ex.walk(c)
	}
}

// rhsIsCallable reports whether a let-statement's right-hand side is a
// lambda expression, function('name'), or a dict literal with method
// fields — the cases spec.md §4.C calls "callable-bearing".
func rhsIsCallable(letNode syntax.Node) bool {
	if v, ok := letNode.ChildByFieldName("value"); ok {
		return nodeLooksCallable(v)
	}
	text := letNode.Text()
	return strings.Contains(text, "->") || strings.Contains(text, "function(")
}

func nodeLooksCallable(n syntax.Node) bool {
	switch n.Kind() {
	case syntax.KindLambda, syntax.KindDict:
		return true
	case syntax.KindCall:
		if fn, ok := n.ChildByFieldName("function"); ok {
			return fn.Text() == "function"
		}
	}
	return false
}

// walkCall records a call site and its argument count and, for
// autoload-qualified names ("ns#sub#fn"), leaves the autoload-lookup step
// to the workspace index.
func (ex *extractor) walkCall(n syntax.Node) syntax.Node {
	fn, ok := n.ChildByFieldName("function")
	if !ok && n.ChildCount() > 0 {
		fn = n.Child(0)
		ok = fn.Valid()
	}
	if !ok {
		return syntax.Node{}
	}
	argCount := -1
	if args, ok := n.ChildByFieldName("arguments"); ok {
		argCount = countArgs(args)
	}
	ex.walkIdentifierCall(fn, argCount)
	return fn
}

// walkIdentifier records a reference for a bare or scope-prefixed
// identifier occurrence that is not itself a call.
func (ex *extractor) walkIdentifier(n syntax.Node) {
	ex.walkIdentifierCall(n, -1)
}

// walkIdentifierCall records a reference, optionally as a call site with a
// known argument count (argCount == -1 for non-calls or unknown counts).
func (ex *extractor) walkIdentifierCall(n syntax.Node, argCount int) {
	raw := n.Text()
	if raw == "" {
		return
	}
	scope, name := scopedName(raw)
	ex.addReference(&Reference{
		Name:      name,
		Scope:     scope,
		Range:     n.Range(),
		IsCall:    argCount >= 0,
		ArgCount:  argCount,
		Enclosing: ex.current(),
	})
}

// countArgs counts the comma-separated top-level arguments in a call's
// argument-list node.
func countArgs(args syntax.Node) int {
	if args.NamedChildCount() > 0 {
		return args.NamedChildCount()
	}
	text := strings.TrimSpace(args.Text())
	text = strings.TrimPrefix(text, "(")
	text = strings.TrimSuffix(text, ")")
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	depth := 0
	count := 1
	inString := byte(0)
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case inString != 0:
			if c == inString && (i == 0 || text[i-1] != '\\') {
				inString = 0
			}
		case c == '\'' || c == '"':
			inString = c
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			count++
		}
	}
	return count
}

// walkLambda marks a lambda expression as producing a callable value; the
// enclosing let-statement (if any) already captured this via rhsIsCallable,
// so this just ensures the lambda's own body is still walked for references.
func (ex *extractor) walkLambda(n syntax.Node) {
	for i := 0; i < n.ChildCount(); i++ {
		ex.walk(n.Child(i))
	}
}

func extractParams(params syntax.Node) (list []Param, variadic bool) {
	for i := 0; i < params.ChildCount(); i++ {
		c := params.Child(i)
		switch c.Kind() {
		case syntax.KindIdentifier:
			list = append(list, Param{Name: c.Text()})
		default:
			text := strings.TrimSpace(c.Text())
			if text == "..." {
				variadic = true
				continue
			}
			if text == "" || text == "," || text == "(" || text == ")" {
				continue
			}
			if name, _, hasDefault := strings.Cut(text, "="); hasDefault {
				list = append(list, Param{Name: strings.TrimSpace(name), Optional: true})
			}
		}
	}
	return list, variadic
}

func requiredCount(params []Param) int {
	n := 0
	for _, p := range params {
		if !p.Optional {
			n++
		}
	}
	return n
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
