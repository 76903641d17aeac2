// Package execution exposes the Python execution pipeline and pip
// management as MCP tools.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/slighter12/unreal-mcp-go/editor"
	"github.com/slighter12/unreal-mcp-go/mcp"
	"github.com/slighter12/unreal-mcp-go/tools/types"
)

// ExecutePythonTool runs code through the full pipeline: syntax pre-flight,
// inspection, change tracking and bounded auto-install.
type ExecutePythonTool struct {
	deps types.Deps
}

func NewExecutePythonTool(deps types.Deps) *ExecutePythonTool {
	return &ExecutePythonTool{deps: deps}
}

func (t *ExecutePythonTool) Name() string { return "execute_python" }

func (t *ExecutePythonTool) Description() string {
	return "Executes Python code inside the Unreal Editor with static inspection, asset/actor change tracking and automatic installation of missing packages"
}

func (t *ExecutePythonTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python code to execute in the editor's embedded interpreter",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "Per-statement execution timeout (defaults to the configured value)",
			},
		},
		Required: []string{"code"},
		Title:    "Execute Python",
	}
}

func (t *ExecutePythonTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		Code           string `json:"code"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Code) == "" {
		return nil, types.NewSemanticError("invalid_params", "Code is required", map[string]any{
			"field": "code",
			"tool":  t.Name(),
		})
	}

	timeout := time.Duration(params.TimeoutSeconds) * time.Second
	result := t.deps.Core.Run(params.Code, timeout)
	return json.Marshal(result)
}

// InspectPythonTool runs the static inspection pass without executing.
type InspectPythonTool struct {
	deps types.Deps
}

func NewInspectPythonTool(deps types.Deps) *InspectPythonTool {
	return &InspectPythonTool{deps: deps}
}

func (t *InspectPythonTool) Name() string { return "inspect_python" }

func (t *InspectPythonTool) Description() string {
	return "Statically inspects Python code for blocking calls and deprecated editor APIs without executing it"
}

func (t *InspectPythonTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"code": map[string]any{
				"type":        "string",
				"description": "Python code to inspect",
			},
		},
		Required: []string{"code"},
		Title:    "Inspect Python",
	}
}

func (t *InspectPythonTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}
	return json.Marshal(t.deps.Inspector.Inspect(params.Code))
}

// PipInstallTool installs packages into the editor's embedded interpreter.
type PipInstallTool struct {
	deps types.Deps
}

func NewPipInstallTool(deps types.Deps) *PipInstallTool {
	return &PipInstallTool{deps: deps}
}

func (t *PipInstallTool) Name() string { return "pip_install_packages" }

func (t *PipInstallTool) Description() string {
	return "Installs pip packages into the Python environment of the running editor"
}

func (t *PipInstallTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"packages": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Package names to install",
			},
			"upgrade": map[string]any{
				"type":        "boolean",
				"description": "Pass --upgrade to pip",
			},
		},
		Required: []string{"packages"},
		Title:    "Pip Install",
	}
}

func (t *PipInstallTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		Packages []string `json:"packages"`
		Upgrade  bool     `json:"upgrade"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}
	if len(params.Packages) == 0 {
		return nil, types.NewSemanticError("invalid_params", "At least one package is required", map[string]any{
			"field": "packages",
			"tool":  t.Name(),
		})
	}

	pythonPath, err := t.deps.Core.PythonPath()
	if err != nil {
		return nil, types.NewNotAvailableError("Editor interpreter is not reachable: "+err.Error(), map[string]any{
			"feature": "pip",
			"tool":    t.Name(),
		})
	}
	return json.Marshal(t.deps.Pip.Install(pythonPath, params.Packages, params.Upgrade))
}

// PipListTool lists packages installed in the editor's environment.
type PipListTool struct {
	deps types.Deps
}

func NewPipListTool(deps types.Deps) *PipListTool {
	return &PipListTool{deps: deps}
}

func (t *PipListTool) Name() string { return "pip_list_packages" }

func (t *PipListTool) Description() string {
	return "Lists pip packages installed in the Python environment of the running editor"
}

func (t *PipListTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type:       "object",
		Properties: map[string]any{},
		Required:   []string{},
		Title:      "Pip List",
	}
}

func (t *PipListTool) Execute(args json.RawMessage) ([]byte, error) {
	pythonPath, err := t.deps.Core.PythonPath()
	if err != nil {
		return nil, types.NewNotAvailableError("Editor interpreter is not reachable: "+err.Error(), map[string]any{
			"feature": "pip",
			"tool":    t.Name(),
		})
	}
	packages, err := t.deps.Pip.List(pythonPath)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"success":  true,
		"packages": packages,
	})
}

// WaitForTaskTool blocks until a long-running in-editor task writes its
// completion file under Saved/Logs.
type WaitForTaskTool struct {
	deps types.Deps
}

func NewWaitForTaskTool(deps types.Deps) *WaitForTaskTool {
	return &WaitForTaskTool{deps: deps}
}

func (t *WaitForTaskTool) Name() string { return "wait_for_task" }

func (t *WaitForTaskTool) Description() string {
	return "Waits for an asynchronous in-editor task to write its completion file and returns the task result"
}

func (t *WaitForTaskTool) InputSchema() mcp.InputSchema {
	return mcp.InputSchema{
		Type: "object",
		Properties: map[string]any{
			"task_id": map[string]any{
				"type":        "string",
				"description": "Task identifier the in-editor script uses for its completion file",
			},
			"timeout_seconds": map[string]any{
				"type":        "integer",
				"description": "How long to wait before giving up (default 300)",
			},
		},
		Required: []string{"task_id"},
		Title:    "Wait For Task",
	}
}

func (t *WaitForTaskTool) Execute(args json.RawMessage) ([]byte, error) {
	var params struct {
		TaskID         string `json:"task_id"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.TaskID) == "" {
		return nil, types.NewSemanticError("invalid_params", "Task id is required", map[string]any{
			"field": "task_id",
			"tool":  t.Name(),
		})
	}

	timeout := 300 * time.Second
	if params.TimeoutSeconds > 0 {
		timeout = time.Duration(params.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	projectRoot := filepath.Dir(t.deps.Config.Editor.ProjectPath)
	watcher := editor.NewCompletionWatcher(projectRoot, params.TaskID)
	result, err := watcher.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return json.Marshal(map[string]any{
				"success": false,
				"error":   "Timed out waiting for task completion",
				"task_id": params.TaskID,
				"file":    watcher.File(),
			})
		}
		return nil, err
	}
	return json.Marshal(map[string]any{
		"success": true,
		"task_id": params.TaskID,
		"result":  result,
	})
}

// GetAllTools returns the execution tools bound to the given dependencies.
func GetAllTools(deps types.Deps) []types.Tool {
	return []types.Tool{
		NewExecutePythonTool(deps),
		NewInspectPythonTool(deps),
		NewPipInstallTool(deps),
		NewPipListTool(deps),
		NewWaitForTaskTool(deps),
	}
}
