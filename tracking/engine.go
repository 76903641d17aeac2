package tracking

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

const (
	currentLevelTimeout = 10 * time.Second
	snapshotTimeout     = 30 * time.Second
	diagnosticTimeout   = 30 * time.Second
)

// Executor runs a script inside the editor. Satisfied by the execution core;
// kept as an interface so snapshots are testable with canned results.
type Executor interface {
	Execute(code string, timeout time.Duration) remoteexec.Result
}

// Engine captures asset and actor snapshots by injecting introspection
// scripts into the editor. Snapshots live for one diff cycle only.
type Engine struct {
	exec        Executor
	projectRoot string
	tolerances  Tolerances
}

// NewEngine creates a snapshot engine bound to one editor session.
func NewEngine(exec Executor, projectRoot string, tolerances Tolerances) *Engine {
	if tolerances.Position <= 0 {
		tolerances.Position = DefaultPositionTolerance
	}
	if tolerances.Rotation <= 0 {
		tolerances.Rotation = DefaultRotationTolerance
	}
	return &Engine{exec: exec, projectRoot: projectRoot, tolerances: tolerances}
}

// Tolerances returns the transform comparison thresholds in use.
func (e *Engine) Tolerances() Tolerances { return e.tolerances }

// CurrentLevelDir queries the editor for the currently open level and
// reduces it to its directory, so the current level is tracked even when
// the executed code never names it.
func (e *Engine) CurrentLevelDir() (string, bool) {
	result := e.exec.Execute(currentLevelScript, currentLevelTimeout)
	if !result.Success {
		logger.Debug("Failed to query current level", "error", result.Error)
		return "", false
	}

	path, found := ExtractMarkerLine(remoteexec.FlattenOutput(result.Output), MarkerCurrentLevelPath)
	if !found || path == "" || path == "NONE" {
		return "", false
	}
	// Strip the sub-object suffix: /Game/Maps/Foo.Foo:PersistentLevel.
	if idx := strings.IndexByte(path, '.'); idx >= 0 {
		path = path[:idx]
	}
	return ParentDirectory(path), true
}

// CaptureAssets snapshots every asset under the given directory prefixes.
func (e *Engine) CaptureAssets(paths []string) (*AssetSnapshot, bool) {
	if len(paths) == 0 {
		return nil, false
	}

	result := e.exec.Execute(assetSnapshotScript(paths, e.projectRoot), snapshotTimeout)
	if !result.Success {
		logger.Warn("Asset snapshot execution failed", "error", result.Error)
		return nil, false
	}

	payload, found := ExtractMarkerJSON(remoteexec.FlattenOutput(result.Output), MarkerSnapshotResult)
	if !found {
		logger.Warn("No snapshot result marker in output")
		return nil, false
	}

	var snapshot AssetSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		logger.Warn("Failed to parse asset snapshot", "error", err)
		return nil, false
	}
	if snapshot.Assets == nil {
		snapshot.Assets = map[string]AssetRecord{}
	}
	return &snapshot, true
}

// CaptureActors snapshots the actors of the current level plus any
// explicitly requested levels.
func (e *Engine) CaptureActors(levelPaths []string) (*ActorSnapshot, bool) {
	if levelPaths == nil {
		levelPaths = []string{}
	}

	result := e.exec.Execute(actorSnapshotScript(levelPaths), snapshotTimeout)
	if !result.Success {
		logger.Debug("Actor snapshot execution failed", "error", result.Error)
		return nil, false
	}

	payload, found := ExtractMarkerJSON(remoteexec.FlattenOutput(result.Output), MarkerActorSnapshotResult)
	if !found {
		logger.Debug("No actor snapshot result marker in output")
		return nil, false
	}

	var raw struct {
		Levels       map[string]LevelActors `json:"levels"`
		CurrentLevel string                 `json:"current_level"`
		Error        string                 `json:"error"`
	}
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		logger.Warn("Failed to parse actor snapshot", "error", err)
		return nil, false
	}
	if raw.Error != "" {
		logger.Debug("Actor snapshot reported error", "error", raw.Error)
		return nil, false
	}
	if raw.Levels == nil {
		raw.Levels = map[string]LevelActors{}
	}
	return &ActorSnapshot{Levels: raw.Levels, CurrentLevel: raw.CurrentLevel}, true
}

// LevelDiagnostic runs the structural level check (actor counts, class
// histogram, unbound script references) for one level.
func (e *Engine) LevelDiagnostic(levelPath string) (map[string]any, bool) {
	result := e.exec.Execute(levelDiagnosticScript(levelPath), diagnosticTimeout)
	if !result.Success {
		logger.Debug("Level diagnostic failed", "level", levelPath, "error", result.Error)
		return nil, false
	}
	return parseDiagnostic(result, levelPath)
}

// DirtyAssetPaths lists packages with unsaved changes in the editor.
func (e *Engine) DirtyAssetPaths() []string {
	result := e.exec.Execute(dirtyPackagesScript, snapshotTimeout)
	if !result.Success {
		logger.Debug("Failed to query dirty packages", "error", result.Error)
		return nil
	}

	// The script prints a single JSON object; scan output lines from the
	// end past any editor log noise.
	lines := strings.Split(remoteexec.FlattenOutput(result.Output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var data struct {
			Success bool     `json:"success"`
			Paths   []string `json:"paths"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		return data.Paths
	}
	return nil
}
