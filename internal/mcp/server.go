package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sriramsowmithri9807/Griva-sub000/internal/logging"
)

const (
	protocolVersion = "2024-11-05"
	maxLineBytes    = 4 << 20

	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Server speaks newline-delimited JSON-RPC 2.0 for MCP clients
type Server struct {
	handler *Handler
	logger  *logging.Logger
	methods map[string]methodFunc
}

type methodFunc func(ctx context.Context, params json.RawMessage) (interface{}, *RPCError)

func NewServer(handler *Handler, logger *logging.Logger) *Server {
	s := &Server{
		handler: handler,
		logger:  logger,
	}
	s.methods = map[string]methodFunc{
		"initialize": s.initialize,
		"ping":       func(context.Context, json.RawMessage) (interface{}, *RPCError) { return struct{}{}, nil },
		"tools/list": s.toolsList,
		"tools/call": s.toolsCall,
	}
	return s
}

// Request is a JSON-RPC request. A request without an id is a notification
// and gets no response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func (r Request) isNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type InitializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
	Capabilities    Caps       `json:"capabilities"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Caps struct {
	Tools *ToolsCap `json:"tools,omitempty"`
}

type ToolsCap struct {
	ListChanged bool `json:"listChanged"`
}

type ToolsListResult struct {
	Tools []ToolDefinition `json:"tools"`
}

type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Run serves stdin and stdout until EOF or ctx is done
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve answers one request per line of in. Lines are read on a separate
// goroutine so a cancelled ctx returns without waiting for input.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		var err error
		defer func() {
			readErr <- err
			close(lines)
		}()

		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				err = ctx.Err()
				return
			}
		}
		err = scanner.Err()
	}()

	s.logger.Info("MCP server started, waiting for requests")
	w := bufio.NewWriter(out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return fmt.Errorf("read error: %w", err)
				}
				return nil
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}

			resp := s.handleRequest(ctx, line)
			if resp == nil {
				continue
			}
			if err := s.write(w, resp); err != nil {
				return err
			}
		}
	}
}

func (s *Server) write(w *bufio.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to marshal response", logging.WithField("error", err.Error()))
		return nil
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return w.Flush()
}

func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse(json.RawMessage("null"), codeParseError, "Parse error")
	}
	if req.Method == "" {
		if req.isNotification() {
			return nil
		}
		return errorResponse(req.ID, codeInvalidRequest, "Invalid request")
	}

	s.logger.Debug("Received request", logging.WithFields(map[string]interface{}{
		"method": req.Method,
		"id":     string(req.ID),
	}))

	// Notifications such as notifications/initialized need no answer
	if req.isNotification() {
		return nil
	}

	method, ok := s.methods[req.Method]
	if !ok {
		return errorResponse(req.ID, codeMethodNotFound, "Method not found")
	}
	result, rpcErr := method(ctx, req.Params)
	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

func (s *Server) initialize(_ context.Context, raw json.RawMessage) (interface{}, *RPCError) {
	var params InitializeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &RPCError{Code: codeInvalidParams, Message: "Invalid params: " + err.Error()}
		}
	}
	if params.ClientInfo.Name != "" {
		s.logger.Info("MCP client connected", logging.WithFields(map[string]interface{}{
			"client":   params.ClientInfo.Name,
			"version":  params.ClientInfo.Version,
			"protocol": params.ProtocolVersion,
		}))
	}

	return InitializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      ServerInfo{Name: "griva-feed", Version: "1.0.0"},
		Capabilities:    Caps{Tools: &ToolsCap{}},
	}, nil
}

func (s *Server) toolsList(context.Context, json.RawMessage) (interface{}, *RPCError) {
	return ToolsListResult{Tools: s.handler.GetTools()}, nil
}

// toolsCall reports tool failures inside the result with isError set, so
// the model sees the message. Only malformed calls are protocol errors.
func (s *Server) toolsCall(ctx context.Context, raw json.RawMessage) (interface{}, *RPCError) {
	var params CallToolParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "Invalid params: " + err.Error()}
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, &RPCError{Code: codeInvalidParams, Message: "Invalid params: missing tool name"}
	}

	result, err := s.handler.HandleToolCall(ctx, params.Name, params.Arguments)
	if err != nil {
		return textResult(map[string]string{"error": err.Error()}, true), nil
	}
	return textResult(result, false), nil
}

func textResult(v interface{}, isError bool) CallToolResult {
	text, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		text = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
		isError = true
	}
	return CallToolResult{
		Content: []ContentItem{{Type: "text", Text: string(text)}},
		IsError: isError,
	}
}
