/*
Command hjkls is the Language Server Protocol (LSP) server for Vim script.

# Installation

To install the latest version of hjkls, run:

	go install hjkls.dev/hjkls/cmd/hjkls@latest

# Supported Features

hjkls supports the following LSP features over *.vim files:

  - Diagnostics: syntax errors, scope violations, undefined functions,
    argument-count mismatches, and a set of style/suspicious-usage checks
  - Hover, go to definition, find references, document highlight
  - Completion and signature help
  - Document and workspace symbols, folding ranges, selection ranges
  - Formatting, rename, and quick-fix code actions

# Editor Setup

hjkls communicates over stdin/stdout using the LSP protocol. Configure your
editor to run hjkls as the language server for .vim files.

Using Neovim's built-in LSP client (Neovim 0.8+), add to your init.lua:

	vim.api.nvim_create_autocmd({'BufRead', 'BufNewFile'}, {
		pattern = '*.vim',
		callback = function()
			vim.lsp.start({
				name = 'hjkls',
				cmd = {'hjkls'},
			})
		end,
	})

# Logging

Set --log=<path> or the HJKLS_LOG environment variable to append
diagnostic-level server logs to a file; logging is off by default.
*/
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"hjkls.dev/hjkls/document"
	"hjkls.dev/hjkls/protocol"
	"hjkls.dev/hjkls/server"
	"hjkls.dev/hjkls/workspace"
)

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

func main() {
	logPath := flag.String("log", os.Getenv("HJKLS_LOG"), "append server logs to this file")
	flag.Parse()

	logger := log.New(io.Discard, "", log.LstdFlags)
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "hjkls: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = log.New(f, "", log.LstdFlags)
	}

	t := &transport{
		r:      bufio.NewReader(os.Stdin),
		w:      bufio.NewWriter(os.Stdout),
		logger: logger,
	}
	t.srv = server.New(t.publishDiagnostics)

	if err := t.run(); err != nil {
		var e exitError
		if errors.As(err, &e) {
			os.Exit(e.code)
		}
		fmt.Fprintf(os.Stderr, "hjkls: %v\n", err)
		os.Exit(1)
	}
}

// transport owns the stdio JSON-RPC wire framing; every LSP semantic lives
// in server.Server, which transport only calls into.
type transport struct {
	r        *bufio.Reader
	w        *bufio.Writer
	logger   *log.Logger
	srv      *server.Server
	shutdown bool
}

type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }

func (t *transport) run() error {
	for {
		data, err := t.readMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		var msg request
		if err := json.Unmarshal(data, &msg); err != nil {
			t.sendError(nil, codeParseError, err.Error())
			continue
		}
		t.logger.Printf("<- %s", msg.Method)
		if err := t.dispatch(&msg); err != nil {
			return err
		}
	}
}

func (t *transport) dispatch(msg *request) error {
	switch msg.Method {
	case "initialize":
		return t.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		t.shutdown = true
		return t.reply(msg.ID, nil)
	case "exit":
		if t.shutdown {
			return exitError{0}
		}
		return exitError{1}
	case "textDocument/didOpen":
		return t.handleDidOpen(msg)
	case "textDocument/didChange":
		return t.handleDidChange(msg)
	case "textDocument/didClose":
		return t.handleDidClose(msg)
	case "textDocument/didSave":
		return nil
	case "textDocument/hover":
		return t.handleHover(msg)
	case "textDocument/definition":
		return t.handleDefinition(msg)
	case "textDocument/references":
		return t.handleReferences(msg)
	case "textDocument/completion":
		return t.handleCompletion(msg)
	case "textDocument/signatureHelp":
		return t.handleSignatureHelp(msg)
	case "textDocument/documentHighlight":
		return t.handleDocumentHighlight(msg)
	case "textDocument/documentSymbol":
		return t.handleDocumentSymbol(msg)
	case "textDocument/foldingRange":
		return t.handleFoldingRange(msg)
	case "textDocument/selectionRange":
		return t.handleSelectionRange(msg)
	case "textDocument/formatting":
		return t.handleFormatting(msg)
	case "textDocument/prepareRename":
		return t.handlePrepareRename(msg)
	case "textDocument/rename":
		return t.handleRename(msg)
	case "textDocument/codeAction":
		return t.handleCodeAction(msg)
	case "workspace/symbol":
		return t.handleWorkspaceSymbol(msg)
	case "workspace/didChangeWatchedFiles":
		return t.handleDidChangeWatchedFiles(msg)
	case "$/cancelRequest", "workspace/didChangeConfiguration":
		return nil
	default:
		if msg.ID != nil {
			return t.sendError(msg.ID, codeMethodNotFound, fmt.Sprintf("unsupported method %q", msg.Method))
		}
		return nil
	}
}

// Handlers

func (t *transport) handleInitialize(msg *request) error {
	var p struct {
		RootURI  string `json:"rootUri"`
		RootPath string `json:"rootPath"`
	}
	json.Unmarshal(msg.Params, &p)

	root := p.RootPath
	if p.RootURI != "" {
		root = workspace.URIToPath(p.RootURI)
	}
	if root == "" {
		root = "."
	}

	t.srv.Initialize(context.Background(), root, os.Getenv("VIMRUNTIME"), func(w string) {
		t.logger.Print(w)
	})

	const result = `{
		"capabilities": {
			"textDocumentSync": {"openClose": true, "change": 2},
			"hoverProvider": true,
			"definitionProvider": true,
			"referencesProvider": true,
			"completionProvider": {"triggerCharacters": [".", ":", "#", "<"]},
			"signatureHelpProvider": {"triggerCharacters": ["(", ",", ")"]},
			"documentHighlightProvider": true,
			"documentSymbolProvider": true,
			"workspaceSymbolProvider": true,
			"foldingRangeProvider": true,
			"selectionRangeProvider": true,
			"documentFormattingProvider": true,
			"renameProvider": {"prepareProvider": true},
			"codeActionProvider": true
		},
		"serverInfo": {"name": "hjkls"}
	}`
	return t.replyRaw(msg.ID, json.RawMessage(result))
}

func (t *transport) handleDidOpen(msg *request) error {
	var p struct {
		TextDocument struct {
			URI     string `json:"uri"`
			Text    string `json:"text"`
			Version int    `json:"version"`
		} `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	if err := t.srv.DidOpen(context.Background(), p.TextDocument.URI, p.TextDocument.Text, p.TextDocument.Version); err != nil {
		t.logger.Printf("didOpen %s: %v", p.TextDocument.URI, err)
	}
	return nil
}

func (t *transport) handleDidChange(msg *request) error {
	var p struct {
		TextDocument   textDocumentIdentifier `json:"textDocument"`
		Version        int                    `json:"version"`
		ContentChanges []struct {
			Range *protocol.Range `json:"range,omitempty"`
			Text  string          `json:"text"`
		} `json:"contentChanges"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	changes := make([]document.Change, len(p.ContentChanges))
	for i, c := range p.ContentChanges {
		changes[i] = document.Change{Range: c.Range, Text: c.Text}
	}
	if err := t.srv.DidChange(context.Background(), p.TextDocument.URI, p.Version, changes); err != nil {
		t.logger.Printf("didChange %s: %v", p.TextDocument.URI, err)
	}
	return nil
}

func (t *transport) handleDidClose(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	t.srv.DidClose(p.TextDocument.URI)
	return nil
}

func (t *transport) handleDidChangeWatchedFiles(msg *request) error {
	var p struct {
		Changes []struct {
			URI  string `json:"uri"`
			Type int    `json:"type"`
		} `json:"changes"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return nil
	}
	for _, c := range p.Changes {
		t.srv.DidChangeWatchedFiles(context.Background(), c.URI, workspace.ChangeKind(c.Type))
	}
	return nil
}

func (t *transport) handleHover(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.Hover(p.TextDocument.URI, p.Position))
}

func (t *transport) handleDefinition(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.Definition(p.TextDocument.URI, p.Position))
}

func (t *transport) handleReferences(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Position     protocol.Position      `json:"position"`
		Context      struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.References(p.TextDocument.URI, p.Position, p.Context.IncludeDeclaration))
}

func (t *transport) handleCompletion(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.Completion(p.TextDocument.URI, p.Position))
}

func (t *transport) handleSignatureHelp(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.SignatureHelp(p.TextDocument.URI, p.Position))
}

func (t *transport) handleDocumentHighlight(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.DocumentHighlight(p.TextDocument.URI, p.Position))
}

func (t *transport) handleDocumentSymbol(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.DocumentSymbols(p.TextDocument.URI))
}

func (t *transport) handleWorkspaceSymbol(msg *request) error {
	var p struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.WorkspaceSymbols(p.Query))
}

func (t *transport) handleFoldingRange(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.FoldingRanges(p.TextDocument.URI))
}

func (t *transport) handleSelectionRange(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Positions    []protocol.Position    `json:"positions"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	out := make([]*protocol.SelectionRange, len(p.Positions))
	for i, pos := range p.Positions {
		out[i] = t.srv.SelectionRange(p.TextDocument.URI, pos)
	}
	return t.reply(msg.ID, out)
}

func (t *transport) handleFormatting(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.Formatting(p.TextDocument.URI))
}

func (t *transport) handlePrepareRename(msg *request) error {
	var p textDocumentPositionParams
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	rng, ok := t.srv.PrepareRename(p.TextDocument.URI, p.Position)
	if !ok {
		return t.reply(msg.ID, nil)
	}
	return t.reply(msg.ID, rng)
}

func (t *transport) handleRename(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Position     protocol.Position      `json:"position"`
		NewName      string                 `json:"newName"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	edit, err := t.srv.Rename(p.TextDocument.URI, p.Position, p.NewName)
	if err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, edit)
}

func (t *transport) handleCodeAction(msg *request) error {
	var p struct {
		TextDocument textDocumentIdentifier `json:"textDocument"`
		Range        protocol.Range         `json:"range"`
	}
	if err := json.Unmarshal(msg.Params, &p); err != nil {
		return t.sendError(msg.ID, codeInvalidParams, err.Error())
	}
	return t.reply(msg.ID, t.srv.CodeActions(p.TextDocument.URI, p.Range))
}

func (t *transport) publishDiagnostics(uri string, diags []protocol.Diagnostic) {
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	for i := range diags {
		diags[i].Source = "hjkls"
	}
	t.notify("textDocument/publishDiagnostics", struct {
		URI         string                  `json:"uri"`
		Diagnostics []protocol.Diagnostic `json:"diagnostics"`
	}{URI: uri, Diagnostics: diags})
}

// Protocol I/O

func (t *transport) readMessage() ([]byte, error) {
	var contentLen int
	for {
		line, err := t.r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if k, v, ok := strings.Cut(line, ":"); ok && strings.ToLower(strings.TrimSpace(k)) == "content-length" {
			contentLen, _ = strconv.Atoi(strings.TrimSpace(v))
		}
	}
	if contentLen == 0 {
		return nil, fmt.Errorf("missing Content-Length")
	}
	data := make([]byte, contentLen)
	_, err := io.ReadFull(t.r, data)
	return data, err
}

func (t *transport) writeMessage(data []byte) error {
	fmt.Fprintf(t.w, "Content-Length: %d\r\n\r\n", len(data))
	t.w.Write(data)
	return t.w.Flush()
}

func (t *transport) reply(id json.RawMessage, result any) error {
	data, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result,omitempty"`
	}{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return err
	}
	return t.writeMessage(data)
}

func (t *transport) replyRaw(id json.RawMessage, result json.RawMessage) error {
	data, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result,omitempty"`
	}{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		return err
	}
	return t.writeMessage(data)
}

func (t *transport) sendError(id json.RawMessage, code int, message string) error {
	data, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Error   *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}{
		JSONRPC: "2.0",
		ID:      id,
		Error: &struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}{Code: code, Message: message},
	})
	if err != nil {
		return err
	}
	return t.writeMessage(data)
}

func (t *transport) notify(method string, params any) error {
	data, err := json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return err
	}
	return t.writeMessage(data)
}

// LSP envelope types

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type textDocumentPositionParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position      `json:"position"`
}
