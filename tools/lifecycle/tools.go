// Package lifecycle exposes editor process management as MCP tools: launch,
// stop, status and log access.
package lifecycle

import (
	"encoding/json"

	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools/types"
)

// EditorLaunchTool starts the configured Unreal project and waits for the
// remote execution link.
type EditorLaunchTool struct {
	deps types.Deps
}

func NewEditorLaunchTool(deps types.Deps) *EditorLaunchTool {
	return &EditorLaunchTool{deps: deps}
}

func (t *EditorLaunchTool) Name() string { return "editor_launch" }

func (t *EditorLaunchTool) Description() string {
	return "Launches the Unreal Editor for the configured project and connects to its Python remote execution endpoint"
}

func (t *EditorLaunchTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
		Title:      "Launch Editor",
	}
}

func (t *EditorLaunchTool) Execute(args json.RawMessage) ([]byte, error) {
	return json.Marshal(t.deps.Supervisor.Launch())
}

// EditorStopTool shuts the managed editor down.
type EditorStopTool struct {
	deps types.Deps
}

func NewEditorStopTool(deps types.Deps) *EditorStopTool {
	return &EditorStopTool{deps: deps}
}

func (t *EditorStopTool) Name() string { return "editor_stop" }

func (t *EditorStopTool) Description() string {
	return "Stops the managed Unreal Editor: graceful quit first, then escalating signals"
}

func (t *EditorStopTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
		Title:      "Stop Editor",
	}
}

func (t *EditorStopTool) Execute(args json.RawMessage) ([]byte, error) {
	return json.Marshal(t.deps.Supervisor.Stop())
}

// EditorStatusTool reports process and connection state.
type EditorStatusTool struct {
	deps types.Deps
}

func NewEditorStatusTool(deps types.Deps) *EditorStatusTool {
	return &EditorStatusTool{deps: deps}
}

func (t *EditorStatusTool) Name() string { return "editor_status" }

func (t *EditorStatusTool) Description() string {
	return "Reports the managed editor's process status, connection state and log file location"
}

func (t *EditorStatusTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
		Title:      "Editor Status",
	}
}

func (t *EditorStatusTool) Execute(args json.RawMessage) ([]byte, error) {
	return json.Marshal(t.deps.Supervisor.Status())
}

// EditorLogTool reads the editor's log file.
type EditorLogTool struct {
	deps types.Deps
}

func NewEditorLogTool(deps types.Deps) *EditorLogTool {
	return &EditorLogTool{deps: deps}
}

func (t *EditorLogTool) Name() string { return "editor_log" }

func (t *EditorLogTool) Description() string {
	return "Reads the managed editor's log file, optionally only the last N lines"
}

func (t *EditorLogTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"tail_lines": map[string]any{
				"type":        "integer",
				"description": "Return only the last N lines (0 returns the whole file)",
			},
		},
		Required: []string{},
		Title:    "Editor Log",
	}
}

func (t *EditorLogTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		TailLines int `json:"tail_lines"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, err
		}
	}
	return json.Marshal(t.deps.Supervisor.ReadLog(params.TailLines))
}

// GetAllTools returns the lifecycle tools bound to the given dependencies.
func GetAllTools(deps types.Deps) []types.Tool {
	return []types.Tool{
		NewEditorLaunchTool(deps),
		NewEditorStopTool(deps),
		NewEditorStatusTool(deps),
		NewEditorLogTool(deps),
	}
}
