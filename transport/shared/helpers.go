// Package shared holds the JSON-RPC method handlers common to the stdio
// and HTTP transports.
package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/mcp/jsonrpc"
	"github.com/slighter12/unreal-mcp-go/tools"
	tooltypes "github.com/slighter12/unreal-mcp-go/tools/types"
)

const pageSize = 50

func BuildToolsListResponse(msg jsonrpc.Request, toolList []mcp.Tool) *jsonrpc.Response {
	sortedTools := append([]mcp.Tool(nil), toolList...)
	sort.Slice(sortedTools, func(i, j int) bool {
		return sortedTools[i].Name < sortedTools[j].Name
	})

	start, err := ParseCursor(msg.Params, len(sortedTools))
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
	}
	end := min(start+pageSize, len(sortedTools))

	result := map[string]any{
		"tools": sortedTools[start:end],
	}
	if end < len(sortedTools) {
		result["nextCursor"] = strconv.Itoa(end)
	}
	return jsonrpc.NewResponse(msg.ID, result)
}

func BuildResourcesListResponse(msg jsonrpc.Request) *jsonrpc.Response {
	resources := defaultResources()
	start, err := ParseCursor(msg.Params, len(resources))
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
	}
	end := min(start+pageSize, len(resources))

	result := map[string]any{
		"resources": resources[start:end],
	}
	if end < len(resources) {
		result["nextCursor"] = strconv.Itoa(end)
	}
	return jsonrpc.NewResponse(msg.ID, result)
}

func BuildResourcesReadResponse(msg jsonrpc.Request, readResource func(string) (any, error)) *jsonrpc.Response {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), "Invalid resources/read payload", nil)
	}
	if params.URI == "" {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), "Resource URI is required", nil)
	}

	result, err := readResource(params.URI)
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInternalError), "Failed to encode resource result", nil)
	}

	return jsonrpc.NewResponse(msg.ID, map[string]any{
		"contents": []map[string]any{
			{
				"uri":      params.URI,
				"mimeType": "application/json",
				"text":     string(resultJSON),
			},
		},
	})
}

func BuildPingResponse(msg jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewResponse(msg.ID, map[string]any{})
}

// DispatchStandardMethod handles shared non-initialize JSON-RPC methods for all transports.
func DispatchStandardMethod(msg jsonrpc.Request, toolManager *tools.Manager, readResource func(string) (any, error)) any {
	switch msg.Method {
	case "tools/list":
		return BuildToolsListResponse(msg, toolManager.GetTools())
	case "resources/list":
		return BuildResourcesListResponse(msg)
	case "resources/read":
		return BuildResourcesReadResponse(msg, readResource)
	case "tools/call":
		return BuildToolCallResponse(msg, toolManager, readResource)
	case "ping":
		return BuildPingResponse(msg)
	default:
		if msg.ID != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrMethodNotFound), "Method not found", map[string]any{
				"method": msg.Method,
			})
		}
		return nil
	}
}

func BuildToolCallResponse(msg jsonrpc.Request, toolManager *tools.Manager, readResource func(string) (any, error)) *jsonrpc.Response {
	var toolCall struct {
		Name      string         `json:"name"`
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &toolCall); err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), "Invalid tool call payload", nil)
	}

	toolName := strings.TrimSpace(toolCall.Name)
	if toolName == "" {
		toolName = strings.TrimSpace(toolCall.Tool)
	}
	if toolName == "" {
		return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), "Tool name is required", nil)
	}

	arguments := toolCall.Arguments
	if arguments == nil {
		arguments = map[string]any{}
	}

	if strings.HasPrefix(toolName, "ue://") {
		if readResource == nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), "Resource handler is not configured", nil)
		}
		result, err := readResource(toolName)
		if err != nil {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
		}
		return jsonrpc.NewResponse(msg.ID, BuildToolSuccessResult(toolName, result))
	}

	result, err := toolManager.CallTool(toolName, arguments)
	if err != nil {
		if tools.IsToolNotFound(err) {
			return jsonrpc.NewErrorResponse(msg.ID, int(jsonrpc.ErrInvalidParams), err.Error(), nil)
		}
		if semanticErr, ok := tooltypes.AsSemanticError(err); ok {
			return jsonrpc.NewResponse(msg.ID, map[string]any{
				"type":    string(mcp.TypeResult),
				"tool":    toolName,
				"content": []map[string]any{{"type": "text", "text": semanticErr.Error()}},
				"isError": true,
				"data":    semanticErr.Data,
			})
		}
		return jsonrpc.NewResponse(msg.ID, map[string]any{
			"type":    string(mcp.TypeResult),
			"tool":    toolName,
			"content": []map[string]any{{"type": "text", "text": err.Error()}},
			"isError": true,
		})
	}

	return jsonrpc.NewResponse(msg.ID, BuildToolSuccessResult(toolName, result))
}

func BuildToolSuccessResult(toolName string, result any) map[string]any {
	return map[string]any{
		"type":              string(mcp.TypeResult),
		"tool":              toolName,
		"result":            result,
		"content":           ToolContentFromResult(result),
		"structuredContent": result,
		"isError":           false,
	}
}

func ToolContentFromResult(result any) []map[string]any {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return []map[string]any{{"type": "text", "text": "tool call completed"}}
	}
	return []map[string]any{{"type": "text", "text": string(resultJSON)}}
}

func ServerCapabilities() map[string]any {
	return map[string]any{
		"tools":     map[string]any{},
		"resources": map[string]any{},
	}
}

func ParseCursor(paramsRaw json.RawMessage, total int) (int, error) {
	if len(paramsRaw) == 0 {
		return 0, nil
	}

	var params struct {
		Cursor string `json:"cursor"`
	}
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return 0, fmt.Errorf("invalid params payload")
	}
	if strings.TrimSpace(params.Cursor) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(params.Cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor value")
	}
	if offset < 0 || offset > total {
		return 0, fmt.Errorf("invalid cursor value")
	}
	return offset, nil
}

func defaultResources() []map[string]any {
	return []map[string]any{
		{
			"uri":      "ue://project/info",
			"name":     "Project Info",
			"mimeType": "application/json",
		},
		{
			"uri":      "ue://editor/status",
			"name":     "Editor Status",
			"mimeType": "application/json",
		},
		{
			"uri":      "ue://editor/log",
			"name":     "Editor Log",
			"mimeType": "application/json",
		},
	}
}

// ParseJSONRPCFrame validates and parses one JSON-RPC message frame.
// Both transports currently require a single message per frame; batch
// frames are rejected as invalid requests.
func ParseJSONRPCFrame(frame []byte) ([]jsonrpc.Request, []any, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil, fmt.Errorf("empty message")
	}

	if trimmed[0] == '[' {
		return nil, []any{jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, []any{jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrParseError), "Parse error", nil)}, nil
	}

	requestID, validID := parseIDFromEnvelope(envelope)
	if !validID {
		return nil, []any{jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, nil
	}

	var msg jsonrpc.Request
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, []any{jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, nil
	}

	if msg.Method == "" || msg.JSONRPC != jsonrpc.Version {
		return nil, []any{jsonrpc.NewErrorResponse(requestID, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, nil
	}
	if msg.Method == "initialize" && msg.ID == nil {
		return nil, []any{jsonrpc.NewErrorResponse(nil, int(jsonrpc.ErrInvalidRequest), "Invalid request", nil)}, nil
	}

	return []jsonrpc.Request{msg}, nil, nil
}

func parseIDFromEnvelope(envelope map[string]json.RawMessage) (any, bool) {
	rawID, exists := envelope["id"]
	if !exists {
		return nil, true
	}
	trimmed := bytes.TrimSpace(rawID)
	if len(trimmed) == 0 {
		return nil, false
	}

	var id any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&id); err != nil {
		return nil, false
	}
	switch v := id.(type) {
	case string:
		return id, true
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return nil, false
		}
		return id, true
	default:
		return nil, false
	}
}
