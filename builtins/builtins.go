// Package builtins holds the static, read-only data tables spec.md §9
// describes as "generated from external documentation at build time and
// embedded as static read-only data": builtin function signatures, v:
// variables, autocmd events, 'set' options, mapping modifiers, and has()
// feature names.
//
// The tables here are a representative subset of Vim's builtin surface,
// sized for a working language server rather than a byte-for-byte mirror
// of :help; a real build would generate this file from the Vim source's
// eval.c/usr_41.txt the way the rest of the pack's data-table packages
// generate theirs from their own upstreams (see DESIGN.md).
package builtins

// Function describes one builtin function's call signature.
type Function struct {
	Name string
	Min  int
	Max  int // -1 means unbounded (SPEC_FULL.md §12.1 Open Question decision)
	Doc  string
}

// Functions is the builtin function table, keyed by name.
var Functions = map[string]Function{
	"abs":        {"abs", 1, 1, "Absolute value of {expr}."},
	"append":     {"append", 2, 2, "Append {expr} as a new line below {lnum}."},
	"argc":       {"argc", 0, 1, "Number of files in the argument list."},
	"bufname":    {"bufname", 0, 1, "Name of the specified buffer."},
	"bufnr":      {"bufnr", 0, 2, "Number of the specified buffer."},
	"call":       {"call", 2, 3, "Call function {func} with arguments {arglist}."},
	"changenr":   {"changenr", 0, 0, "Number of the most recent change."},
	"col":        {"col", 1, 1, "Byte index of the column of the cursor or a mark."},
	"copy":       {"copy", 1, 1, "Make a shallow copy of {expr}."},
	"count":      {"count", 2, 4, "Count the number of times {expr} occurs in {comp}."},
	"empty":      {"empty", 1, 1, "Reports whether {expr} is empty."},
	"exists":     {"exists", 1, 1, "Reports whether {expr} is defined."},
	"extend":     {"extend", 2, 3, "Append items of {expr2} to {expr1}."},
	"filter":     {"filter", 2, 2, "Remove items from {expr1} for which {expr2} is false."},
	"fnamemodify": {"fnamemodify", 2, 2, "Modify file name {fname} according to {mods}."},
	"function":  {"function", 1, 3, "Return a Funcref variable for {name}."},
	"get":        {"get", 2, 3, "Get item {idx} from a List, Dict, or Funcref."},
	"getline":    {"getline", 1, 2, "Get line {lnum} from the current buffer."},
	"has":        {"has", 1, 2, "Reports whether feature {feature} is supported."},
	"has_key":    {"has_key", 2, 2, "Reports whether Dictionary {dict} has key {key}."},
	"input":      {"input", 0, 3, "Get input from the user."},
	"join":       {"join", 1, 2, "Join List {list} into one String."},
	"json_decode": {"json_decode", 1, 1, "Decode {expr} as JSON."},
	"json_encode": {"json_encode", 1, 1, "Encode {expr} as JSON."},
	"keys":       {"keys", 1, 1, "List of the keys of Dictionary {dict}."},
	"len":        {"len", 1, 1, "Length of {expr}."},
	"line":       {"line", 1, 2, "Line number of the cursor or a mark."},
	"map":        {"map", 2, 2, "Replace items of {expr1} with the result of {expr2}."},
	"mapnew":     {"mapnew", 2, 2, "Like map() but creates a new List or Dictionary."},
	"match":      {"match", 2, 4, "Position where {pat} matches in {expr}."},
	"matchstr":   {"matchstr", 2, 4, "Matched string of {pat} in {expr}."},
	"printf":     {"printf", 1, -1, "Format text according to {fmt}."},
	"range":      {"range", 1, 3, "List with a sequence of numbers."},
	"readfile":   {"readfile", 1, 3, "Read file {fname} and return a List of lines."},
	"reduce":     {"reduce", 2, 3, "Reduce {object} using {func}."},
	"remove":     {"remove", 2, 3, "Remove item(s) {idx} from a List or Dictionary."},
	"reverse":    {"reverse", 1, 1, "Reverse the order of items in {object}."},
	"setline":    {"setline", 2, 2, "Set line {lnum} in the current buffer to {text}."},
	"sort":       {"sort", 1, 3, "Sort the items in {list}."},
	"split":      {"split", 1, 3, "Split String {expr} into a List."},
	"str2nr":     {"str2nr", 1, 3, "Convert String {expr} to a Number."},
	"strchars":   {"strchars", 1, 2, "Number of characters in {expr}."},
	"strlen":     {"strlen", 1, 1, "Length of the String {expr} in bytes."},
	"string":     {"string", 1, 1, "String representation of {expr}."},
	"substitute": {"substitute", 4, 4, "Replace matches of {pat} in {expr} with {sub}."},
	"system":     {"system", 1, 2, "Execute shell command {expr}."},
	"type":       {"type", 1, 1, "Type of {expr}, as a Number."},
	"values":     {"values", 1, 1, "List of the values of Dictionary {dict}."},
	"writefile":  {"writefile", 2, 3, "Write List {list} to file {fname}."},
}

// Variables holds doc strings for the v: special variables.
var Variables = map[string]string{
	"v:count":     "The count given for the last Normal mode command.",
	"v:count1":    "Like v:count but defaults to one when no count given.",
	"v:errmsg":    "Last given error message.",
	"v:exception":  "Value of the exception most recently caught and not finished.",
	"v:false":     "Special value used to put False in JSON.",
	"v:key":       "Key of the current item of a Dictionary, when used in a map() or filter() expression.",
	"v:lang":      "Current locale setting for messages.",
	"v:null":      "Special value used to put null in JSON.",
	"v:shell_error": "Result of the last shell command.",
	"v:true":      "Special value used to put True in JSON.",
	"v:val":       "Value of the current item, when used in a map() or filter() expression.",
	"v:version":   "Version number of Vim.",
}

// Events is the autocmd event name table.
var Events = []string{
	"BufNewFile", "BufReadPre", "BufRead", "BufReadPost", "BufReadCmd",
	"BufWritePre", "BufWrite", "BufWritePost", "BufWriteCmd",
	"BufEnter", "BufLeave", "BufDelete", "BufWipeout", "BufNew",
	"BufUnload", "BufHidden", "BufAdd", "BufFilePre", "BufFilePost",
	"CmdlineEnter", "CmdlineLeave", "CmdlineChanged",
	"CursorHold", "CursorHoldI", "CursorMoved", "CursorMovedI",
	"FileType", "FocusGained", "FocusLost",
	"InsertEnter", "InsertLeave", "InsertChange", "InsertCharPre",
	"QuitPre", "SessionLoadPost",
	"TextChanged", "TextChangedI", "TextChangedP",
	"User", "VimEnter", "VimLeave", "VimLeavePre", "VimResized",
	"WinEnter", "WinLeave", "WinNew", "WinClosed",
}

// Options is a subset of 'set'/'setlocal'/'setglobal' option names.
var Options = []string{
	"autoindent", "background", "backspace", "backup", "colorcolumn",
	"compatible", "cursorline", "expandtab", "fileencoding", "fileformat",
	"filetype", "foldenable", "foldmethod", "hidden", "hlsearch",
	"ignorecase", "incsearch", "laststatus", "list", "listchars",
	"modeline", "number", "relativenumber", "ruler", "scrolloff",
	"shiftwidth", "showcmd", "showmatch", "signcolumn", "smartcase",
	"smartindent", "softtabstop", "spell", "spelllang", "splitbelow",
	"splitright", "swapfile", "tabstop", "termguicolors", "textwidth",
	"undofile", "updatetime", "wildmenu", "wrap",
}

// MapModifiers is the bracketed-argument token table for map-family commands
// (`<silent>`, `<buffer>`, ...).
var MapModifiers = []string{
	"<buffer>", "<nowait>", "<silent>", "<special>", "<script>",
	"<expr>", "<unique>",
}

// Features is the has() feature-name table.
var Features = []string{
	"autocmd", "clipboard", "cmdline_completion", "cmdline_history",
	"comments", "conceal", "cursorbind", "dialog_con", "dialog_gui",
	"diff", "digraphs", "eval", "ex_extra", "extra_search",
	"farsi", "file_in_path", "filterpipe", "find_in_path", "float",
	"folding", "gui_running", "iconv", "insert_expand", "job",
	"jumplist", "keymap", "lambda", "langmap", "libcall",
	"linebreak", "lispindent", "listcmds", "localmap", "menu",
	"mksession", "modify_fname", "mouse", "multi_byte", "multi_lang",
	"nvim", "num64", "packages", "path_extra", "persistent_undo",
	"popupwin", "printer", "profile", "python3", "quickfix",
	"reltime", "rightleft", "scrollbind", "signs", "smartindent",
	"startuptime", "statusline", "syntax", "tag_binary", "tag_old_static",
	"termguicolors", "terminal", "textobjects", "timers", "title",
	"unix", "user_commands", "vertsplit", "vim9script", "viminfo",
	"virtualedit", "visual", "visualextra", "win32", "windows",
	"wildignore", "wildmenu", "writebackup",
}

// Lookup returns the builtin function signature for name, if any.
func Lookup(name string) (Function, bool) {
	f, ok := Functions[name]
	return f, ok
}

// IsEvent reports whether name is a recognized autocmd event, case-insensitively
// matched the way Vim's own event dispatch is.
func IsEvent(name string) bool {
	for _, e := range Events {
		if equalFold(e, name) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
