package tracking

import (
	"encoding/json"

	"github.com/slighter12/unreal-mcp-go/logger"
	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

// Correlator runs follow-up introspection for the entities a change report
// names: structural diagnostics for changed levels, a lighter inspect pass
// for other asset types. Only affected entities are touched, never the
// whole project.
type Correlator struct {
	exec Executor
}

// NewCorrelator creates a correlator bound to one editor session.
func NewCorrelator(exec Executor) *Correlator {
	return &Correlator{exec: exec}
}

// Enrich attaches a per-asset diagnostic payload to each changed asset in
// the report. Deleted assets are skipped: there is nothing left to inspect.
func (c *Correlator) Enrich(report *ChangeReport) {
	if report == nil || !report.Detected {
		return
	}

	details := make(map[string]any)
	for _, group := range [][]ChangedAsset{report.Created, report.Modified} {
		for _, asset := range group {
			payload, ok := c.runFor(asset)
			if !ok {
				continue
			}
			details[asset.Path] = payload
		}
	}
	if len(details) > 0 {
		report.Details = details
	}
}

func (c *Correlator) runFor(asset ChangedAsset) (map[string]any, bool) {
	var script string
	if asset.AssetType == "World" || asset.AssetType == "Level" {
		script = levelDiagnosticScript(asset.Path)
	} else {
		script = assetInspectScript(asset.Path)
	}

	result := c.exec.Execute(script, diagnosticTimeout)
	if !result.Success {
		logger.Debug("Diagnostic execution failed", "path", asset.Path, "error", result.Error)
		return nil, false
	}
	return parseDiagnostic(result, asset.Path)
}

// EnrichActors attaches a level diagnostic summary for each changed level.
func (c *Correlator) EnrichActors(report *ActorChangeReport) {
	if report == nil || !report.Detected || len(report.ChangedLevels) == 0 {
		return
	}

	diagnostics := make(map[string]any)
	for levelPath := range report.ChangedLevels {
		result := c.exec.Execute(levelDiagnosticScript(levelPath), diagnosticTimeout)
		if !result.Success {
			logger.Debug("Level diagnostic failed", "level", levelPath, "error", result.Error)
			continue
		}
		if payload, ok := parseDiagnostic(result, levelPath); ok {
			diagnostics[levelPath] = payload
		}
	}
	if len(diagnostics) > 0 {
		report.LevelDiagnostic = diagnostics
	}
}

func parseDiagnostic(result remoteexec.Result, path string) (map[string]any, bool) {
	payload, found := ExtractMarkerJSON(remoteexec.FlattenOutput(result.Output), MarkerResult)
	if !found {
		logger.Debug("No diagnostic result marker in output", "path", path)
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		logger.Debug("Failed to parse diagnostic payload", "path", path, "error", err)
		return nil, false
	}
	return data, true
}
