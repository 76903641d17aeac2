package tracking

import (
	"reflect"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestCompareAssetSnapshotsSelfIsEmpty(t *testing.T) {
	snapshot := AssetSnapshot{
		Assets: map[string]AssetRecord{
			"/Game/Maps/A": {AssetType: "World", Timestamp: 100},
			"/Game/BP/B":   {AssetType: "Blueprint", Timestamp: 50},
		},
		ScannedPaths: []string{"/Game/Maps/", "/Game/BP/"},
	}

	report := CompareAssetSnapshots(snapshot, snapshot)
	if report.Detected {
		t.Fatal("diffing a snapshot against itself must detect nothing")
	}
	if len(report.Created)+len(report.Deleted)+len(report.Modified) != 0 {
		t.Fatalf("expected empty change lists, got %+v", report)
	}
}

func TestCompareAssetSnapshotsCreateDeleteSymmetry(t *testing.T) {
	a := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/Maps/A": {AssetType: "World", Timestamp: 100},
	}}
	b := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/Maps/A": {AssetType: "World", Timestamp: 100},
		"/Game/Maps/B": {AssetType: "World", Timestamp: 120},
	}}

	forward := CompareAssetSnapshots(a, b)
	if len(forward.Created) != 1 || forward.Created[0].Path != "/Game/Maps/B" {
		t.Fatalf("A->B should create B, got %+v", forward.Created)
	}
	if len(forward.Deleted) != 0 {
		t.Fatalf("A->B should delete nothing, got %+v", forward.Deleted)
	}

	backward := CompareAssetSnapshots(b, a)
	if len(backward.Deleted) != 1 || backward.Deleted[0].Path != "/Game/Maps/B" {
		t.Fatalf("B->A should delete B, got %+v", backward.Deleted)
	}
}

func TestCompareAssetSnapshotsTimestampIncrease(t *testing.T) {
	before := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/BP/B": {AssetType: "Blueprint", Timestamp: 50},
	}}
	after := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/BP/B": {AssetType: "Blueprint", Timestamp: 51},
	}}

	report := CompareAssetSnapshots(before, after)
	if len(report.Modified) != 1 || report.Modified[0].Path != "/Game/BP/B" {
		t.Fatalf("timestamp increase should mark modified, got %+v", report)
	}

	// A decrease is not a modification.
	report = CompareAssetSnapshots(after, before)
	if len(report.Modified) != 0 {
		t.Fatalf("timestamp decrease should not mark modified, got %+v", report.Modified)
	}
}

func TestCompareAssetSnapshotsExternalFileCount(t *testing.T) {
	// Level asset whose main file timestamp held still but whose external
	// actor files changed.
	before := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/Maps/A": {AssetType: "World", Timestamp: 100, ExternalFileCount: intPtr(4)},
	}}
	after := AssetSnapshot{Assets: map[string]AssetRecord{
		"/Game/Maps/A": {AssetType: "World", Timestamp: 100, ExternalFileCount: intPtr(5)},
	}}

	report := CompareAssetSnapshots(before, after)
	if len(report.Modified) != 1 {
		t.Fatalf("external file count change should mark modified, got %+v", report)
	}
	if !report.Detected {
		t.Fatal("detected must be true when modified is non-empty")
	}
}

func TestCompareAssetSnapshotsNewLevelScenario(t *testing.T) {
	before := AssetSnapshot{
		Assets:       map[string]AssetRecord{},
		ScannedPaths: []string{"/Game/Tests/"},
	}
	after := AssetSnapshot{
		Assets: map[string]AssetRecord{
			"/Game/Tests/X": {AssetType: "Level", Timestamp: 100},
		},
		ScannedPaths: []string{"/Game/Tests/"},
	}

	report := CompareAssetSnapshots(before, after)
	if !report.Detected {
		t.Fatal("expected change detected")
	}
	want := []ChangedAsset{{Path: "/Game/Tests/X", AssetType: "Level"}}
	if !reflect.DeepEqual(report.Created, want) {
		t.Fatalf("created = %+v, want %+v", report.Created, want)
	}
	if len(report.Deleted) != 0 || len(report.Modified) != 0 {
		t.Fatalf("expected only creations, got %+v", report)
	}
}
