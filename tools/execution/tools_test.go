package execution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/slighter12/unreal-mcp-go/config"
	"github.com/slighter12/unreal-mcp-go/executor"
	"github.com/slighter12/unreal-mcp-go/inspector"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
	"github.com/slighter12/unreal-mcp-go/tools/types"
)

// scriptedRunner answers interpreter-path queries and echoes everything else
// back as a successful execution.
type scriptedRunner struct {
	connected bool
	calls     []string
}

func (r *scriptedRunner) Execute(code string, timeout time.Duration) remoteexec.Result {
	r.calls = append(r.calls, code)
	if !r.connected {
		return remoteexec.Result{
			Error:  "Editor is not connected. Use editor_launch first.",
			Output: []remoteexec.OutputLine{},
		}
	}
	if strings.Contains(code, "get_interpreter_executable_path") {
		return remoteexec.Result{
			Success: true,
			Output:  []remoteexec.OutputLine{{Type: "Info", Output: "/py/bin/python3"}},
		}
	}
	return remoteexec.Result{Success: true, Result: "None"}
}

func testDeps(runner *scriptedRunner) types.Deps {
	ins := inspector.New(
		inspector.NewBlockingCallChecker(inspector.SeverityError),
		inspector.NewDeprecatedAPIChecker(),
	)
	core := executor.New(runner, ins, nil, executor.Options{Timeout: 30 * time.Second})
	return types.Deps{
		Core:      core,
		Inspector: ins,
		Pip:       executor.NewPip(),
	}
}

func TestExecutePythonRequiresCode(t *testing.T) {
	tool := NewExecutePythonTool(testDeps(&scriptedRunner{connected: true}))

	_, err := tool.Execute(json.RawMessage(`{"code":"  "}`))
	semantic, ok := types.AsSemanticError(err)
	if !ok {
		t.Fatalf("expected semantic error, got %v", err)
	}
	if semantic.Kind != "invalid_params" {
		t.Fatalf("unexpected kind %q", semantic.Kind)
	}
}

func TestExecutePythonRunsCode(t *testing.T) {
	runner := &scriptedRunner{connected: true}
	tool := NewExecutePythonTool(testDeps(runner))

	raw, err := tool.Execute(json.RawMessage(`{"code":"print('hi')"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %s", raw)
	}
	if len(runner.calls) == 0 {
		t.Fatal("code never reached the editor")
	}
}

func TestExecutePythonBlockedCodeReported(t *testing.T) {
	runner := &scriptedRunner{connected: true}
	tool := NewExecutePythonTool(testDeps(runner))

	raw, err := tool.Execute(json.RawMessage(`{"code":"import time\ntime.sleep(60)"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Success bool `json:"success"`
		Issues  []struct {
			Severity string `json:"severity"`
		} `json:"inspection_issues"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if result.Success || len(result.Issues) == 0 {
		t.Fatalf("blocking call must be reported, got %s", raw)
	}
	if len(runner.calls) != 0 {
		t.Fatal("blocked code must not reach the editor")
	}
}

func TestInspectPython(t *testing.T) {
	tool := NewInspectPythonTool(testDeps(&scriptedRunner{connected: true}))

	raw, err := tool.Execute(json.RawMessage(`{"code":"import time\ntime.sleep(5)"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Allowed bool `json:"allowed"`
		Issues  []struct {
			Severity string `json:"severity"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if result.Allowed || len(result.Issues) == 0 {
		t.Fatalf("expected a blocking-call issue, got %s", raw)
	}
}

func TestPipInstallRequiresPackages(t *testing.T) {
	tool := NewPipInstallTool(testDeps(&scriptedRunner{connected: true}))

	_, err := tool.Execute(json.RawMessage(`{"packages":[]}`))
	if _, ok := types.AsSemanticError(err); !ok {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestPipToolsNeedConnectedEditor(t *testing.T) {
	deps := testDeps(&scriptedRunner{connected: false})

	_, err := NewPipInstallTool(deps).Execute(json.RawMessage(`{"packages":["numpy"]}`))
	semantic, ok := types.AsSemanticError(err)
	if !ok || semantic.Kind != "not_available" {
		t.Fatalf("expected not_available, got %v", err)
	}

	_, err = NewPipListTool(deps).Execute(nil)
	if _, ok := types.AsSemanticError(err); !ok {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestWaitForTaskReturnsCompletionResult(t *testing.T) {
	root := t.TempDir()
	logsDir := filepath.Join(root, "Saved", "Logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logsDir, "bake-1_completed"), []byte(`{"status":"done"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deps := testDeps(&scriptedRunner{connected: true})
	deps.Config = &config.Config{Editor: config.Editor{ProjectPath: filepath.Join(root, "Demo.uproject")}}
	tool := NewWaitForTaskTool(deps)

	raw, err := tool.Execute(json.RawMessage(`{"task_id":"bake-1","timeout_seconds":5}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Success bool           `json:"success"`
		Result  map[string]any `json:"result"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if !result.Success || result.Result["status"] != "done" {
		t.Fatalf("unexpected result %s", raw)
	}
}

func TestWaitForTaskRequiresTaskID(t *testing.T) {
	tool := NewWaitForTaskTool(testDeps(&scriptedRunner{connected: true}))
	_, err := tool.Execute(json.RawMessage(`{"task_id":" "}`))
	if _, ok := types.AsSemanticError(err); !ok {
		t.Fatalf("expected semantic error, got %v", err)
	}
}

func TestToolNamesAreStable(t *testing.T) {
	names := map[string]bool{}
	for _, tool := range GetAllTools(testDeps(&scriptedRunner{})) {
		names[tool.Name()] = true
	}
	for _, want := range []string{"execute_python", "inspect_python", "pip_install_packages", "pip_list_packages", "wait_for_task"} {
		if !names[want] {
			t.Errorf("missing tool %q", want)
		}
	}
}
