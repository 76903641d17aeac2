package tracking

import (
	"strings"
	"testing"
	"time"

	"github.com/slighter12/unreal-mcp-go/remoteexec"
)

// scriptedExecutor answers Execute calls by matching a substring of the
// submitted code against canned results.
type scriptedExecutor struct {
	responses map[string]remoteexec.Result
	calls     []string
}

func (s *scriptedExecutor) Execute(code string, timeout time.Duration) remoteexec.Result {
	s.calls = append(s.calls, code)
	for needle, result := range s.responses {
		if strings.Contains(code, needle) {
			return result
		}
	}
	return remoteexec.Result{Success: false, Error: "no scripted response", Output: []remoteexec.OutputLine{}}
}

func outputLines(lines ...string) []remoteexec.OutputLine {
	out := make([]remoteexec.OutputLine, len(lines))
	for i, line := range lines {
		out[i] = remoteexec.OutputLine{Type: "Info", Output: line}
	}
	return out
}

func TestCurrentLevelDir(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"CURRENT_LEVEL_PATH": {
			Success: true,
			Output:  outputLines("LogPython: noise", "CURRENT_LEVEL_PATH:/Game/ThirdPerson/Maps/Demo.Demo:PersistentLevel"),
		},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	dir, ok := engine.CurrentLevelDir()
	if !ok {
		t.Fatal("expected current level found")
	}
	if dir != "/Game/ThirdPerson/Maps/" {
		t.Fatalf("expected level directory, got %q", dir)
	}
}

func TestCurrentLevelDirNone(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"CURRENT_LEVEL_PATH": {Success: true, Output: outputLines("CURRENT_LEVEL_PATH:NONE")},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	if _, ok := engine.CurrentLevelDir(); ok {
		t.Fatal("NONE must report no current level")
	}
}

func TestCaptureAssetsParsesMarker(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"SNAPSHOT_RESULT": {
			Success: true,
			Output: outputLines(
				"LogPython: scanning",
				`SNAPSHOT_RESULT:{"assets": {"/Game/Maps/A": {"asset_type": "World", "timestamp": 123.5, "external_file_count": 3}}, "scanned_paths": ["/Game/Maps/"]}`,
			),
		},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	snapshot, ok := engine.CaptureAssets([]string{"/Game/Maps/"})
	if !ok {
		t.Fatal("expected snapshot captured")
	}
	record, ok := snapshot.Assets["/Game/Maps/A"]
	if !ok {
		t.Fatalf("missing asset in snapshot: %+v", snapshot.Assets)
	}
	if record.AssetType != "World" || record.Timestamp != 123.5 {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.ExternalFileCount == nil || *record.ExternalFileCount != 3 {
		t.Fatalf("expected external file count 3, got %+v", record.ExternalFileCount)
	}
}

func TestCaptureAssetsEmptyPaths(t *testing.T) {
	engine := NewEngine(&scriptedExecutor{}, "/projects/Demo", DefaultTolerances())
	if _, ok := engine.CaptureAssets(nil); ok {
		t.Fatal("no scan paths means no snapshot")
	}
}

func TestCaptureActorsParsesMarker(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"ACTOR_SNAPSHOT_RESULT": {
			Success: true,
			Output: outputLines(
				`ACTOR_SNAPSHOT_RESULT:{"levels": {"/Game/Maps/Demo": {"level_path": "/Game/Maps/Demo.Demo:PersistentLevel", "actor_count": 1, "actors": {"/Game/Maps/Demo.Cube": {"label": "Cube", "class": "StaticMeshActor", "location": [1, 2, 3], "rotation": [0, 0, 0], "scale": [1, 1, 1]}}}}, "current_level": "/Game/Maps/Demo.Demo:PersistentLevel"}`,
			),
		},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	snapshot, ok := engine.CaptureActors(nil)
	if !ok {
		t.Fatal("expected actor snapshot captured")
	}
	level, ok := snapshot.Levels["/Game/Maps/Demo"]
	if !ok || level.ActorCount != 1 {
		t.Fatalf("unexpected levels %+v", snapshot.Levels)
	}
	actor := level.Actors["/Game/Maps/Demo.Cube"]
	if actor.Location != [3]float64{1, 2, 3} {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestCaptureActorsErrorPayload(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"ACTOR_SNAPSHOT_RESULT": {
			Success: true,
			Output:  outputLines(`ACTOR_SNAPSHOT_RESULT:{"error": "No world loaded"}`),
		},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	if _, ok := engine.CaptureActors(nil); ok {
		t.Fatal("error payload should report no snapshot")
	}
}

func TestDirtyAssetPaths(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"get_dirty_content_packages": {
			Success: true,
			Output: outputLines(
				"LogTemp: noise",
				`{"success": true, "paths": ["/Game/Maps/Demo", "/Game/BP/Thing"]}`,
			),
		},
	}}
	engine := NewEngine(exec, "/projects/Demo", DefaultTolerances())

	paths := engine.DirtyAssetPaths()
	if len(paths) != 2 || paths[0] != "/Game/Maps/Demo" {
		t.Fatalf("unexpected dirty paths %v", paths)
	}
}

func TestCorrelatorEnrichSelectsScriptByType(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"get_all_level_actors": {
			Success: true,
			Output:  outputLines(`MCP_RESULT:{"level_path": "/Game/Maps/A", "success": true, "actor_count": 5}`),
		},
		"find_asset_data": {
			Success: true,
			Output:  outputLines(`MCP_RESULT:{"path": "/Game/BP/B", "success": true, "asset_type": "Blueprint"}`),
		},
	}}
	correlator := NewCorrelator(exec)

	report := ChangeReport{
		Detected: true,
		Created: []ChangedAsset{
			{Path: "/Game/Maps/A", AssetType: "World"},
			{Path: "/Game/BP/B", AssetType: "Blueprint"},
		},
	}
	correlator.Enrich(&report)

	if len(report.Details) != 2 {
		t.Fatalf("expected details for both assets, got %+v", report.Details)
	}
	levelDetail, ok := report.Details["/Game/Maps/A"].(map[string]any)
	if !ok || levelDetail["actor_count"] != float64(5) {
		t.Fatalf("unexpected level detail %+v", report.Details["/Game/Maps/A"])
	}
}

func TestCorrelatorEnrichSkipsUndetected(t *testing.T) {
	exec := &scriptedExecutor{}
	correlator := NewCorrelator(exec)

	report := ChangeReport{Detected: false}
	correlator.Enrich(&report)
	if len(exec.calls) != 0 {
		t.Fatal("no diagnostics should run for an empty report")
	}
}

func TestCorrelatorEnrichActors(t *testing.T) {
	exec := &scriptedExecutor{responses: map[string]remoteexec.Result{
		"get_all_level_actors": {
			Success: true,
			Output:  outputLines(`MCP_RESULT:{"level_path": "/Game/Maps/B", "success": true, "actor_count": 2}`),
		},
	}}
	correlator := NewCorrelator(exec)

	report := ActorChangeReport{
		Detected:      true,
		Modified:      []string{"b1"},
		ChangedLevels: map[string][]string{"/Game/Maps/B": {"b1"}},
	}
	correlator.EnrichActors(&report)

	if report.LevelDiagnostic == nil {
		t.Fatal("expected level diagnostic attached")
	}
	if _, ok := report.LevelDiagnostic["/Game/Maps/B"]; !ok {
		t.Fatalf("expected diagnostic for changed level, got %+v", report.LevelDiagnostic)
	}
}
