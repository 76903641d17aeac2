// Package assets exposes project content introspection as MCP tools.
package assets

import (
	"encoding/json"
	"strings"

	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools/types"
)

// DirtyAssetsTool lists packages with unsaved changes.
type DirtyAssetsTool struct {
	deps types.Deps
}

func NewDirtyAssetsTool(deps types.Deps) *DirtyAssetsTool {
	return &DirtyAssetsTool{deps: deps}
}

func (t *DirtyAssetsTool) Name() string { return "list_dirty_assets" }

func (t *DirtyAssetsTool) Description() string {
	return "Lists assets with unsaved changes in the running editor"
}

func (t *DirtyAssetsTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
		Title:      "List Dirty Assets",
	}
}

func (t *DirtyAssetsTool) Execute(args json.RawMessage) ([]byte, error) {
	paths := t.deps.Core.Engine().DirtyAssetPaths()
	if paths == nil {
		paths = []string{}
	}
	return json.Marshal(map[string]any{
		"success": true,
		"paths":   paths,
	})
}

// LevelDiagnosticTool runs the structural check for one level.
type LevelDiagnosticTool struct {
	deps types.Deps
}

func NewLevelDiagnosticTool(deps types.Deps) *LevelDiagnosticTool {
	return &LevelDiagnosticTool{deps: deps}
}

func (t *LevelDiagnosticTool) Name() string { return "level_diagnostic" }

func (t *LevelDiagnosticTool) Description() string {
	return "Runs a structural diagnostic for a level: actor counts, class histogram and unbound script references"
}

func (t *LevelDiagnosticTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"level_path": map[string]any{
				"type":        "string",
				"description": "Content path of the level, e.g. /Game/Maps/Main",
			},
		},
		Required: []string{"level_path"},
		Title:    "Level Diagnostic",
	}
}

func (t *LevelDiagnosticTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		LevelPath string `json:"level_path"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.LevelPath) == "" {
		return nil, types.NewSemanticError("invalid_params", "Level path is required", map[string]any{
			"field": "level_path",
			"tool":  t.Name(),
		})
	}

	payload, ok := t.deps.Core.Engine().LevelDiagnostic(params.LevelPath)
	if !ok {
		return nil, types.NewNotAvailableError("Level diagnostic did not produce a result", map[string]any{
			"feature": "diagnostics",
			"level":   params.LevelPath,
			"tool":    t.Name(),
		})
	}
	return json.Marshal(payload)
}

// GetAllTools returns the asset tools bound to the given dependencies.
func GetAllTools(deps types.Deps) []types.Tool {
	return []types.Tool{
		NewDirtyAssetsTool(deps),
		NewLevelDiagnosticTool(deps),
	}
}
