// Package stdio serves the MCP protocol over standard input and output,
// one JSON-RPC message per line.
package stdio

import (
	"encoding/json"
	"io"
	"os"

	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/unreal-mcp-go/tools"
	"github.com/slighter12/unreal-mcp-go/transport/shared"
)

// Server handles MCP communication over stdio.
type Server struct {
	toolManager  *tools.Manager
	readResource func(string) (any, error)
	in           io.Reader
	out          io.Writer
}

// NewServer creates a stdio server bound to the process's stdin/stdout.
func NewServer(toolManager *tools.Manager, readResource func(string) (any, error)) *Server {
	return &Server{
		toolManager:  toolManager,
		readResource: readResource,
		in:           os.Stdin,
		out:          os.Stdout,
	}
}

// Start reads JSON-RPC messages until EOF.
func (s *Server) Start() error {
	decoder := json.NewDecoder(s.in)
	encoder := json.NewEncoder(s.out)

	logger.Debug("Stdio server started and waiting for messages")

	for {
		var msg jsonrpc.Request
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				logger.Debug("Stdio EOF received, terminating server")
				return nil
			}
			// The decoder cannot resynchronize after a syntax error, so a
			// malformed frame ends the session rather than spinning.
			logger.Error("Error decoding message", "error", err)
			return err
		}

		logger.Debug("Stdio message received", "method", msg.Method)

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := encoder.Encode(response); err != nil {
			logger.Error("Error encoding response", "error", err)
		}
	}
}

func (s *Server) handleMessage(msg jsonrpc.Request) any {
	switch msg.Method {
	case "initialize":
		return s.handleInit(msg)
	case "initialized", "notifications/initialized":
		if msg.ID != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)
		}
		return nil
	default:
		return shared.DispatchStandardMethod(msg, s.toolManager, s.readResource)
	}
}

func (s *Server) handleInit(msg jsonrpc.Request) *jsonrpc.Response {
	result := map[string]any{
		"type":            string(mcp.TypeInit),
		"version":         "0.1.0",
		"tools":           s.toolManager.GetTools(),
		"protocolVersion": mcp.ProtocolVersion,
		"capabilities":    shared.ServerCapabilities(),
		"serverInfo": map[string]any{
			"name":    "unreal-mcp-go",
			"version": "0.1.0",
		},
	}
	return jsonrpc.NewResponse(msg.ID, result)
}
