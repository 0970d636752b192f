package query

import (
	"regexp"
	"strings"

	"hjkls.dev/hjkls/builtins"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/symbols"
)

// Completion implements textDocument/completion (spec.md §4.F). Context is
// derived from the line prefix before the cursor (command start, expression
// position, autocmd/set/map/has argument) rather than a single fixed table;
// user symbols are sorted ahead of builtins on an exact prefix match.
func (c *Context) Completion(pos protocol.Position) []protocol.CompletionItem {
	line := c.Buf.Line(pos.Line)
	prefix := line
	if pos.Character <= len(line) {
		prefix = line[:pos.Character]
	}

	switch {
	case afterAutocmdRe.MatchString(prefix):
		return filterKeywords(builtins.Events, lastWord(prefix), protocol.CompletionKeyword)
	case afterSetRe.MatchString(prefix):
		return filterKeywords(builtins.Options, lastWord(prefix), protocol.CompletionKeyword)
	case afterMapAngleRe.MatchString(prefix):
		return filterKeywords(builtins.MapModifiers, lastAngleFragment(prefix), protocol.CompletionKeyword)
	case hasCallRe.MatchString(prefix):
		return c.featureCompletions(prefix)
	case lineStartCommandRe.MatchString(prefix):
		return filterKeywords(exCommands, lastWord(prefix), protocol.CompletionKeyword)
	default:
		return c.expressionCompletions(lastWord(prefix))
	}
}

var (
	afterAutocmdRe      = regexp.MustCompile(`(?i)\b(au|autocmd)!?\s+\S*$`)
	afterSetRe          = regexp.MustCompile(`(?i)\b(set|setlocal|setglobal)\s+\S*$`)
	afterMapAngleRe     = regexp.MustCompile(`<\w*$`)
	hasCallRe           = regexp.MustCompile(`\bhas\(\s*['"]\w*$`)
	lineStartCommandRe  = regexp.MustCompile(`^\s*[A-Za-z]*$`)
	wordTailRe          = regexp.MustCompile(`[\w:#]*$`)
)

// exCommands is a representative subset of Ex commands completed at the
// start of a line (builtins/builtins.go documents why the function/event/
// option/modifier/feature tables are a representative subset rather than a
// byte-for-byte mirror of :help; the same rationale applies here).
var exCommands = []string{
	"let", "const", "call", "echo", "echom", "echon", "if", "elseif", "else",
	"endif", "for", "endfor", "while", "endwhile", "function", "endfunction",
	"return", "normal", "set", "setlocal", "autocmd", "augroup", "try",
	"catch", "finally", "endtry", "unlet", "command", "highlight", "syntax",
	"map", "nmap", "vmap", "imap", "noremap", "nnoremap", "vnoremap",
}

func lastWord(prefix string) string {
	return wordTailRe.FindString(prefix)
}

func lastAngleFragment(prefix string) string {
	i := strings.LastIndexByte(prefix, '<')
	if i < 0 {
		return ""
	}
	return prefix[i:]
}

func filterKeywords(table []string, typed string, kind int) []protocol.CompletionItem {
	var out []protocol.CompletionItem
	for _, k := range table {
		if !strings.HasPrefix(strings.ToLower(k), strings.ToLower(typed)) {
			continue
		}
		out = append(out, protocol.CompletionItem{Label: k, Kind: kind, InsertText: k})
	}
	return out
}

func (c *Context) featureCompletions(prefix string) []protocol.CompletionItem {
	i := strings.LastIndexAny(prefix, "'\"")
	typed := ""
	if i >= 0 {
		typed = prefix[i+1:]
	}
	return filterKeywords(builtins.Features, typed, protocol.CompletionConstant)
}

// expressionCompletions returns functions and variables visible from the
// current document plus builtins, filtered by the typed prefix. User
// symbols sort ahead of builtins on an exact-prefix match (spec.md §4.F).
func (c *Context) expressionCompletions(typed string) []protocol.CompletionItem {
	lowerTyped := strings.ToLower(typed)
	var out []protocol.CompletionItem

	seen := map[string]bool{}
	add := func(item protocol.CompletionItem) {
		key := item.Label
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, item)
	}

	for _, fn := range c.Table.Functions {
		name := scopePrefix(fn.Scope) + fn.Name
		if !strings.HasPrefix(strings.ToLower(name), lowerTyped) {
			continue
		}
		add(protocol.CompletionItem{Label: name, Kind: protocol.CompletionFunction, Detail: signatureText(fn), SortText: "0" + name})
	}
	for _, v := range c.Table.Variables {
		name := scopePrefix(v.Scope) + v.Name
		if !strings.HasPrefix(strings.ToLower(name), lowerTyped) {
			continue
		}
		kind := protocol.CompletionVariable
		add(protocol.CompletionItem{Label: name, Kind: kind, SortText: "0" + name})
	}
	if c.Index != nil {
		for _, r := range c.Index.Search(typed) {
			name := scopePrefix(r.Symbol.Scope) + r.Symbol.Name
			if !strings.HasPrefix(strings.ToLower(name), lowerTyped) {
				continue
			}
			kind := protocol.CompletionVariable
			if r.Symbol.Kind == symbols.KindFunction || r.Symbol.Kind == symbols.KindAutoloadFunction {
				kind = protocol.CompletionFunction
			}
			add(protocol.CompletionItem{Label: name, Kind: kind, SortText: "1" + name})
		}
	}
	for name, fn := range builtins.Functions {
		if !strings.HasPrefix(strings.ToLower(name), lowerTyped) {
			continue
		}
		add(protocol.CompletionItem{Label: name, Kind: protocol.CompletionFunction, Detail: fn.Doc, SortText: "2" + name})
	}
	for name, doc := range builtins.Variables {
		if !strings.HasPrefix(strings.ToLower(name), lowerTyped) {
			continue
		}
		add(protocol.CompletionItem{Label: name, Kind: protocol.CompletionConstant, Detail: doc, SortText: "2" + name})
	}
	return out
}
