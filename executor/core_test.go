package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/slighter12/unreal-mcp-go/inspector"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
	"github.com/slighter12/unreal-mcp-go/tracking"
)

func okResult(output string) remoteexec.Result {
	lines := []remoteexec.OutputLine{}
	if output != "" {
		lines = append(lines, remoteexec.OutputLine{Type: "Info", Output: output})
	}
	return remoteexec.Result{Success: true, Output: lines}
}

func errResult(message string) remoteexec.Result {
	return remoteexec.Result{Error: message, Output: []remoteexec.OutputLine{}}
}

// fakeRunner serves canned responses keyed by code substrings and records
// every statement it receives.
type fakeRunner struct {
	calls     []string
	installed map[string]bool
	respond   func(code string) (remoteexec.Result, bool)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{installed: map[string]bool{}}
}

func (f *fakeRunner) Execute(code string, _ time.Duration) remoteexec.Result {
	f.calls = append(f.calls, code)
	if strings.Contains(code, "get_interpreter_executable_path") {
		return okResult("/py/bin/python3")
	}
	if f.respond != nil {
		if result, handled := f.respond(code); handled {
			return result
		}
	}
	return okResult("")
}

func (f *fakeRunner) lastCall() string {
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

// fakeInstaller marks packages installed on the paired runner.
type fakeInstaller struct {
	runner *fakeRunner
	calls  [][]string
	fail   bool
}

func (f *fakeInstaller) Install(pythonPath string, packages []string, _ bool) InstallResult {
	f.calls = append(f.calls, packages)
	if pythonPath == "" {
		return InstallResult{Packages: packages, Error: "no python interpreter path"}
	}
	if f.fail {
		return InstallResult{Packages: packages, Error: "pip install failed"}
	}
	for _, pkg := range packages {
		f.runner.installed[pkg] = true
	}
	return InstallResult{Success: true, Packages: packages}
}

func newTestCore(runner *fakeRunner, installer Installer, opts Options) *Core {
	return New(runner, nil, installer, opts)
}

func TestRunSyntaxErrorShortCircuits(t *testing.T) {
	runner := newFakeRunner()
	core := newTestCore(runner, nil, Options{})

	result := core.Run("print('broken", 0)
	if result.Success {
		t.Fatal("broken code must not succeed")
	}
	if !strings.HasPrefix(result.Error, "SyntaxError:") {
		t.Fatalf("expected a SyntaxError, got %q", result.Error)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("nothing should reach the editor, got calls %v", runner.calls)
	}
}

func TestRunInspectionBlocks(t *testing.T) {
	runner := newFakeRunner()
	ins := inspector.New(inspector.NewBlockingCallChecker(inspector.SeverityError))
	core := New(runner, ins, nil, Options{})

	result := core.Run("import time\ntime.sleep(5)\n", 0)
	if result.Success {
		t.Fatal("blocked code must not succeed")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues should be reported, got %+v", result.Issues)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("blocked code must not reach the editor, got %v", runner.calls)
	}
}

func TestRunInspectionWarningsPassThrough(t *testing.T) {
	runner := newFakeRunner()
	ins := inspector.New(inspector.NewBlockingCallChecker(inspector.SeverityWarning))
	core := New(runner, ins, nil, Options{})

	result := core.Run("import time\ntime.sleep(1)\n", 0)
	if !result.Success {
		t.Fatalf("warnings must not block, got error %q", result.Error)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("warnings should still be attached, got %+v", result.Issues)
	}
}

func TestRunWrapsMultilineBody(t *testing.T) {
	runner := newFakeRunner()
	core := newTestCore(runner, nil, Options{})

	result := core.Run("s = 'a\\\\b'\nprint(s)\n", 0)
	if !result.Success {
		t.Fatalf("unexpected failure: %q", result.Error)
	}
	body := runner.lastCall()
	if !strings.HasPrefix(body, "exec('''") {
		t.Fatalf("multi-line body should be exec-wrapped, got %q", body)
	}
	// Backslashes escape first, then quotes.
	if !strings.Contains(body, `\'a`) {
		t.Fatalf("quotes should be escaped inside the wrapper, got %q", body)
	}
}

func TestRunSingleLinePassesThrough(t *testing.T) {
	runner := newFakeRunner()
	core := newTestCore(runner, nil, Options{})

	core.Run("print(1)", 0)
	if runner.lastCall() != "print(1)" {
		t.Fatalf("single statements travel unwrapped, got %q", runner.lastCall())
	}
}

func TestRunEvictsBundledModules(t *testing.T) {
	runner := newFakeRunner()
	core := newTestCore(runner, nil, Options{})

	result := core.Run("import asset_diagnostic\nasset_diagnostic.run_diagnostic()\n", 0)
	if !result.Success {
		t.Fatalf("unexpected failure: %q", result.Error)
	}
	if !strings.Contains(runner.lastCall(), "_sys.modules") {
		t.Fatalf("body should carry the eviction prologue, got %q", runner.lastCall())
	}
}

func TestRunAutoInstallsMissingPackage(t *testing.T) {
	runner := newFakeRunner()
	runner.respond = func(code string) (remoteexec.Result, bool) {
		if strings.HasPrefix(code, "import numpy") && !runner.installed["numpy"] {
			return errResult("ModuleNotFoundError: No module named 'numpy'"), true
		}
		return remoteexec.Result{}, false
	}
	installer := &fakeInstaller{runner: runner}
	core := newTestCore(runner, installer, Options{MaxAutoInstalls: 3})

	result := core.Run("import numpy\nprint(numpy.__name__)\n", 0)
	if !result.Success {
		t.Fatalf("expected success after auto-install, got %q", result.Error)
	}
	if len(result.AutoInstalled) != 1 || result.AutoInstalled[0] != "numpy" {
		t.Fatalf("auto_installed = %v, want [numpy]", result.AutoInstalled)
	}
	if len(installer.calls) != 1 {
		t.Fatalf("installer should run exactly once, got %v", installer.calls)
	}
}

func TestRunAutoInstallMapsModuleToPackage(t *testing.T) {
	runner := newFakeRunner()
	runner.respond = func(code string) (remoteexec.Result, bool) {
		if strings.HasPrefix(code, "import cv2") && !runner.installed["opencv-python"] {
			return errResult("ModuleNotFoundError: No module named 'cv2'"), true
		}
		return remoteexec.Result{}, false
	}
	installer := &fakeInstaller{runner: runner}
	core := newTestCore(runner, installer, Options{MaxAutoInstalls: 3})

	result := core.Run("import cv2\nprint(cv2.__version__)\n", 0)
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	if len(installer.calls) != 1 || installer.calls[0][0] != "opencv-python" {
		t.Fatalf("installer should receive the pip name, got %v", installer.calls)
	}
}

func TestRunAutoInstallGivesUpOnPersistentFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.respond = func(code string) (remoteexec.Result, bool) {
		if strings.HasPrefix(code, "import ghostlib") {
			return errResult("ModuleNotFoundError: No module named 'ghostlib'"), true
		}
		return remoteexec.Result{}, false
	}
	installer := &fakeInstaller{runner: runner}
	core := newTestCore(runner, installer, Options{MaxAutoInstalls: 3})

	result := core.Run("import ghostlib\nprint(1)\n", 0)
	if result.Success {
		t.Fatal("persistent import failure must not succeed")
	}
	if !strings.Contains(result.Error, "still failing") {
		t.Fatalf("error should explain the retry gave up, got %q", result.Error)
	}
	if len(installer.calls) != 1 {
		t.Fatalf("a package is installed at most once, got %v", installer.calls)
	}
}

func TestRunAutoInstallLimitIsBounded(t *testing.T) {
	runner := newFakeRunner()
	runner.respond = func(code string) (remoteexec.Result, bool) {
		switch {
		case strings.HasPrefix(code, "import numpy") && !runner.installed["numpy"]:
			return errResult("ModuleNotFoundError: No module named 'numpy'"), true
		case strings.HasPrefix(code, "import scipy") && !runner.installed["scipy"]:
			return errResult("ModuleNotFoundError: No module named 'scipy'"), true
		}
		return remoteexec.Result{}, false
	}
	installer := &fakeInstaller{runner: runner}
	core := newTestCore(runner, installer, Options{MaxAutoInstalls: 1})

	result := core.Run("import numpy\nimport scipy\nprint(1)\n", 0)
	if result.Success {
		t.Fatal("second missing package must hit the install limit")
	}
	if !strings.Contains(result.Error, "auto-install limit") {
		t.Fatalf("error should name the limit, got %q", result.Error)
	}
	if len(installer.calls) != 1 {
		t.Fatalf("only one install within the limit, got %v", installer.calls)
	}
	if len(result.AutoInstalled) != 1 || result.AutoInstalled[0] != "numpy" {
		t.Fatalf("successful installs are still reported, got %v", result.AutoInstalled)
	}
}

func TestRunNoInstallerDisablesAutoInstall(t *testing.T) {
	runner := newFakeRunner()
	runner.respond = func(code string) (remoteexec.Result, bool) {
		if strings.HasPrefix(code, "import numpy") {
			return errResult("ModuleNotFoundError: No module named 'numpy'"), true
		}
		return remoteexec.Result{}, false
	}
	core := newTestCore(runner, nil, Options{MaxAutoInstalls: 3})

	result := core.Run("import numpy\nprint(1)\n", 0)
	if result.Success {
		t.Fatal("missing package without an installer must fail")
	}
	if !strings.Contains(result.Error, "import failed") {
		t.Fatalf("unexpected error %q", result.Error)
	}
}

// trackingRunner layers snapshot responses over the fake runner: the first
// asset snapshot is empty, the second contains one new World asset.
func newTrackingRunner() *fakeRunner {
	runner := newFakeRunner()
	assetCalls := 0
	runner.respond = func(code string) (remoteexec.Result, bool) {
		switch {
		case strings.Contains(code, "CURRENT_LEVEL_PATH"):
			return okResult("CURRENT_LEVEL_PATH:/Game/Maps/Main.Main:PersistentLevel"), true
		case strings.Contains(code, "AssetRegistryHelpers"):
			assetCalls++
			if assetCalls == 1 {
				return okResult(`SNAPSHOT_RESULT:{"assets":{},"scanned_paths":["/Game/Maps/"]}`), true
			}
			return okResult(`SNAPSHOT_RESULT:{"assets":{"/Game/Maps/NewLevel":{"asset_type":"World","timestamp":1000.0}},"scanned_paths":["/Game/Maps/"]}`), true
		case strings.Contains(code, "ACTOR_SNAPSHOT_RESULT"):
			return okResult(`ACTOR_SNAPSHOT_RESULT:{"levels":{},"current_level":"/Game/Maps/Main"}`), true
		case strings.Contains(code, "MCP_RESULT"):
			return errResult("diagnostic unavailable"), true
		}
		return remoteexec.Result{}, false
	}
	return runner
}

func TestRunTrackingReportsCreatedAsset(t *testing.T) {
	runner := newTrackingRunner()
	core := newTestCore(runner, nil, Options{
		TrackingEnabled: true,
		ProjectRoot:     "/tmp/proj",
	})

	result := core.Run("unreal.EditorAssetLibrary.duplicate_asset('/Game/Maps/Main', '/Game/Maps/NewLevel')", 0)
	if !result.Success {
		t.Fatalf("unexpected failure: %q", result.Error)
	}
	if result.AssetChanges == nil || !result.AssetChanges.Detected {
		t.Fatalf("expected detected asset changes, got %+v", result.AssetChanges)
	}
	if len(result.AssetChanges.Created) != 1 || result.AssetChanges.Created[0].Path != "/Game/Maps/NewLevel" {
		t.Fatalf("created = %+v, want /Game/Maps/NewLevel", result.AssetChanges.Created)
	}
	if result.ActorChanges == nil || result.ActorChanges.Detected {
		t.Fatalf("actor report should be present and quiet, got %+v", result.ActorChanges)
	}
}

func TestRunCrashSkipsAfterSnapshots(t *testing.T) {
	runner := newTrackingRunner()
	base := runner.respond
	runner.respond = func(code string) (remoteexec.Result, bool) {
		if strings.Contains(code, "duplicate_asset") {
			return remoteexec.Result{
				Error:   "connection reset by peer",
				Crashed: true,
				Output:  []remoteexec.OutputLine{},
			}, true
		}
		return base(code)
	}
	core := newTestCore(runner, nil, Options{
		TrackingEnabled: true,
		ProjectRoot:     "/tmp/proj",
	})

	result := core.Run("unreal.EditorAssetLibrary.duplicate_asset('/Game/Maps/Main', '/Game/Maps/NewLevel')", 0)
	if result.Success || !result.Crashed {
		t.Fatalf("crash must be reported, got %+v", result)
	}
	if result.AssetChanges != nil || result.ActorChanges != nil {
		t.Fatal("no snapshots after a crash")
	}
}

func TestPythonPath(t *testing.T) {
	runner := newFakeRunner()
	core := newTestCore(runner, nil, Options{})

	path, err := core.PythonPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/py/bin/python3" {
		t.Fatalf("path = %q", path)
	}
}

func TestRunDefaultsUninitializedTolerances(t *testing.T) {
	core := newTestCore(newFakeRunner(), nil, Options{TrackingEnabled: true})
	tol := core.Engine().Tolerances()
	if tol != tracking.DefaultTolerances() {
		t.Fatalf("tolerances = %+v, want defaults", tol)
	}
}
