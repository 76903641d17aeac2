package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/slighter12/unreal-mcp-go/inspector"
	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
	"github.com/slighter12/unreal-mcp-go/tracking"
)

const pythonPathQuery = "import unreal; print(unreal.get_interpreter_executable_path())"

// Runner executes one statement in the editor's embedded interpreter.
// Satisfied by editor.Supervisor.
type Runner interface {
	Execute(code string, timeout time.Duration) remoteexec.Result
}

// Options configures a Core.
type Options struct {
	ProjectRoot     string
	Timeout         time.Duration
	TrackingEnabled bool
	Tolerances      tracking.Tolerances
	// MaxAutoInstalls bounds how many distinct packages one execution may
	// install. Zero disables auto-install.
	MaxAutoInstalls int
}

// RunResult is the full outcome of one pipeline execution.
type RunResult struct {
	Success       bool                        `json:"success"`
	Result        string                      `json:"result,omitempty"`
	Output        []remoteexec.OutputLine     `json:"output"`
	Error         string                      `json:"error,omitempty"`
	Crashed       bool                        `json:"crashed,omitempty"`
	Issues        []inspector.Issue           `json:"inspection_issues,omitempty"`
	AutoInstalled []string                    `json:"auto_installed,omitempty"`
	AssetChanges  *tracking.ChangeReport      `json:"asset_changes,omitempty"`
	ActorChanges  *tracking.ActorChangeReport `json:"actor_changes,omitempty"`
}

// Core runs user code through the full pipeline: syntax pre-flight, static
// inspection, bundled-module eviction, change-tracking snapshots, import
// pre-execution with bounded auto-install, then the body itself.
type Core struct {
	runner     Runner
	inspector  *inspector.Inspector
	engine     *tracking.Engine
	correlator *tracking.Correlator
	installer  Installer
	opts       Options
}

// New creates a Core. A nil installer disables auto-install regardless of
// MaxAutoInstalls.
func New(runner Runner, ins *inspector.Inspector, installer Installer, opts Options) *Core {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Core{
		runner:    runner,
		inspector: ins,
		installer: installer,
		opts:      opts,
	}
	c.engine = tracking.NewEngine(rawExec{c}, opts.ProjectRoot, opts.Tolerances)
	c.correlator = tracking.NewCorrelator(rawExec{c})
	return c
}

// Engine exposes the snapshot engine for callers that need snapshots
// outside an execution, like the dirty-assets query.
func (c *Core) Engine() *tracking.Engine { return c.engine }

// rawExec adapts Core's wrapped execution to the tracking.Executor shape.
type rawExec struct{ c *Core }

func (r rawExec) Execute(code string, timeout time.Duration) remoteexec.Result {
	return r.c.execute(code, timeout)
}

// execute wraps multi-line code into a single exec statement and runs it.
// The remote protocol evaluates one statement per command, so a script body
// travels as exec('''...''') with backslashes and quotes escaped.
func (c *Core) execute(code string, timeout time.Duration) remoteexec.Result {
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	if strings.Contains(code, "\n") {
		escaped := strings.ReplaceAll(code, "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "'", "\\'")
		code = "exec('''" + escaped + "''')"
	}
	return c.runner.Execute(code, timeout)
}

// Run executes user code through the full pipeline.
func (c *Core) Run(code string, timeout time.Duration) RunResult {
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}

	if err := CheckSyntax(code); err != nil {
		return failResult(err.Error())
	}

	var issues []inspector.Issue
	if c.inspector != nil {
		inspection := c.inspector.Inspect(code)
		issues = inspection.Issues
		if !inspection.Allowed {
			result := failResult(inspection.FormatError())
			result.Issues = issues
			return result
		}
	}

	if bundled := ExtractBundledImports(code); len(bundled) > 0 {
		logger.Debug("Evicting bundled modules before execution", "modules", bundled)
		code = GenerateUnloadCode(bundled) + code
	}

	before := c.captureBefore(code)

	imports := ExtractImportStatements(code)
	autoInstalled, importErr := c.runImports(imports, timeout)
	if importErr != nil {
		result := failResult(importErr.Error())
		result.Issues = issues
		result.AutoInstalled = autoInstalled
		return result
	}

	raw := c.execute(code, timeout)
	result := RunResult{
		Success:       raw.Success,
		Result:        raw.Result,
		Output:        raw.Output,
		Error:         raw.Error,
		Crashed:       raw.Crashed,
		Issues:        issues,
		AutoInstalled: autoInstalled,
	}
	if result.Output == nil {
		result.Output = []remoteexec.OutputLine{}
	}
	if raw.Crashed {
		// No snapshots after a crash: the link is gone.
		return result
	}

	c.diffAfter(before, &result)
	return result
}

func failResult(message string) RunResult {
	return RunResult{Error: message, Output: []remoteexec.OutputLine{}}
}

// beforeState holds the pre-execution snapshots and the paths they cover.
type beforeState struct {
	paths      []string
	levels     []string
	assets     *tracking.AssetSnapshot
	actors     *tracking.ActorSnapshot
	haveAssets bool
	haveActors bool
}

// captureBefore extracts the content paths the code touches, adds the
// currently open level's directory, and snapshots assets and actors.
func (c *Core) captureBefore(code string) beforeState {
	state := beforeState{}
	if !c.opts.TrackingEnabled {
		return state
	}

	state.paths = tracking.ExtractContentPaths(code)
	state.levels = tracking.ExtractLevelPaths(code)

	if dir, ok := c.engine.CurrentLevelDir(); ok {
		found := false
		for _, p := range state.paths {
			if p == dir {
				found = true
				break
			}
		}
		if !found {
			state.paths = append(state.paths, dir)
		}
	}

	state.assets, state.haveAssets = c.engine.CaptureAssets(state.paths)
	state.actors, state.haveActors = c.engine.CaptureActors(state.levels)
	return state
}

// diffAfter re-snapshots, diffs against the before state and enriches the
// reports with per-entity diagnostics.
func (c *Core) diffAfter(before beforeState, result *RunResult) {
	if !c.opts.TrackingEnabled {
		return
	}

	if before.haveAssets {
		if after, ok := c.engine.CaptureAssets(before.paths); ok {
			report := tracking.CompareAssetSnapshots(*before.assets, *after)
			c.correlator.Enrich(&report)
			result.AssetChanges = &report
		}
	}
	if before.haveActors {
		if after, ok := c.engine.CaptureActors(before.levels); ok {
			report := tracking.CompareActorSnapshots(*before.actors, *after, c.engine.Tolerances())
			c.correlator.EnrichActors(&report)
			result.ActorChanges = &report
		}
	}
}

// runImports executes import statements ahead of the body so missing
// packages surface as installable errors rather than mid-script failures.
// Each distinct missing package is installed at most once, and at most
// MaxAutoInstalls packages per run.
func (c *Core) runImports(imports []string, timeout time.Duration) ([]string, error) {
	installed := []string{}
	if len(imports) == 0 {
		return installed, nil
	}

	attempted := make(map[string]struct{})
	for _, stmt := range imports {
		for {
			result := c.execute(stmt, timeout)
			if result.Success {
				break
			}
			if result.Crashed {
				return installed, fmt.Errorf("editor connection lost while importing: %s", stmt)
			}
			if !IsImportError(result.Error) {
				return installed, fmt.Errorf("import failed: %s", result.Error)
			}

			module, ok := ExtractMissingModule(result.Error)
			if !ok || c.installer == nil || c.opts.MaxAutoInstalls <= 0 {
				return installed, fmt.Errorf("import failed: %s", result.Error)
			}
			pkg := PackageForModule(module)
			if _, dup := attempted[pkg]; dup {
				return installed, fmt.Errorf(
					"import still failing after installing %s: %s", pkg, result.Error)
			}
			if len(attempted) >= c.opts.MaxAutoInstalls {
				return installed, fmt.Errorf(
					"auto-install limit reached (%d packages): %s",
					c.opts.MaxAutoInstalls, result.Error)
			}
			attempted[pkg] = struct{}{}

			pythonPath, err := c.PythonPath()
			if err != nil {
				return installed, fmt.Errorf("cannot auto-install %s: %v", pkg, err)
			}
			logger.Info("Auto-installing missing package", "package", pkg, "module", module)
			install := c.installer.Install(pythonPath, []string{pkg}, false)
			if !install.Success {
				return installed, fmt.Errorf("failed to install %s: %s", pkg, install.Error)
			}
			installed = append(installed, pkg)
		}
	}
	return installed, nil
}

// PythonPath asks the editor for its embedded interpreter's executable
// path, so pip operations target the environment the editor imports from.
func (c *Core) PythonPath() (string, error) {
	result := c.execute(pythonPathQuery, 10*time.Second)
	if !result.Success {
		return "", fmt.Errorf("failed to query interpreter path: %s", result.Error)
	}
	for _, line := range result.Output {
		path := strings.TrimSpace(line.Output)
		if path != "" && !strings.HasPrefix(path, "LogPython") {
			return path, nil
		}
	}
	return "", fmt.Errorf("editor returned no interpreter path")
}
