package stdio

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools"
)

type pingTool struct{}

func (t *pingTool) Name() string        { return "ping_editor" }
func (t *pingTool) Description() string { return "pings the editor" }
func (t *pingTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{Type: "object", Properties: map[string]any{}, Required: []string{}}
}
func (t *pingTool) Execute(args json.RawMessage) ([]byte, error) {
	return json.Marshal(map[string]any{"alive": true})
}

func newTestServer(t *testing.T, input string) (*Server, *bytes.Buffer) {
	t.Helper()
	manager := tools.NewManager()
	if err := manager.RegisterTool(&pingTool{}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	var out bytes.Buffer
	s := NewServer(manager, nil)
	s.in = strings.NewReader(input)
	s.out = &out
	return s, &out
}

func decodeResponses(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var responses []map[string]any
	decoder := json.NewDecoder(out)
	for decoder.More() {
		var resp map[string]any
		if err := decoder.Decode(&resp); err != nil {
			t.Fatalf("invalid response stream: %v", err)
		}
		responses = append(responses, resp)
	}
	return responses
}

func TestStdioInitializeHandshake(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}
{"jsonrpc":"2.0","method":"notifications/initialized"}
`
	s, out := newTestServer(t, input)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	responses := decodeResponses(t, out)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	result := responses[0]["result"].(map[string]any)
	if result["protocolVersion"] != mcp.ProtocolVersion {
		t.Fatalf("unexpected protocol version %v", result["protocolVersion"])
	}
	serverInfo := result["serverInfo"].(map[string]any)
	if serverInfo["name"] != "unreal-mcp-go" {
		t.Fatalf("unexpected server info %v", serverInfo)
	}
}

func TestStdioToolsListAndCall(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}
{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"ping_editor","arguments":{}}}
`
	s, out := newTestServer(t, input)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	responses := decodeResponses(t, out)
	if len(responses) != 2 {
		t.Fatalf("expected two responses, got %d", len(responses))
	}

	listResult := responses[0]["result"].(map[string]any)
	toolList := listResult["tools"].([]any)
	if len(toolList) != 1 {
		t.Fatalf("expected one tool, got %d", len(toolList))
	}

	callResult := responses[1]["result"].(map[string]any)
	if callResult["isError"] != false || callResult["tool"] != "ping_editor" {
		t.Fatalf("unexpected call result %v", callResult)
	}
}

func TestStdioUnknownMethod(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":7,"method":"no/such/method"}
`
	s, out := newTestServer(t, input)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	responses := decodeResponses(t, out)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	errPayload, ok := responses[0]["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error response, got %v", responses[0])
	}
	if errPayload["code"].(float64) != -32601 {
		t.Fatalf("unexpected error code %v", errPayload["code"])
	}
}

func TestStdioInitializedWithIDRejected(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":3,"method":"initialized"}
`
	s, out := newTestServer(t, input)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	responses := decodeResponses(t, out)
	if len(responses) != 1 {
		t.Fatalf("expected one response, got %d", len(responses))
	}
	if responses[0]["error"] == nil {
		t.Fatal("initialized with an id must be rejected")
	}
}

func TestStdioPing(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":9,"method":"ping"}
`
	s, out := newTestServer(t, input)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	responses := decodeResponses(t, out)
	if len(responses) != 1 || responses[0]["error"] != nil {
		t.Fatalf("unexpected responses %v", responses)
	}
}
