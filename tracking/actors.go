package tracking

import (
	"math"
	"sort"
	"strings"
)

// TempLevelPrefix marks unsaved scratch levels; changes there are lost when
// the editor closes without an explicit save-as.
const TempLevelPrefix = "/Temp/"

// Default comparison tolerances. Rotation is noisier than position because
// of degree normalization round-trips.
const (
	DefaultPositionTolerance = 0.001
	DefaultRotationTolerance = 0.01
)

// ActorRecord captures one actor's transform inside a snapshot.
type ActorRecord struct {
	Label    string     `json:"label"`
	Class    string     `json:"class"`
	Location [3]float64 `json:"location"`
	Rotation [3]float64 `json:"rotation"`
	Scale    [3]float64 `json:"scale"`
}

// LevelActors is the actor population of one level.
type LevelActors struct {
	LevelPath  string                 `json:"level_path"`
	ActorCount int                    `json:"actor_count"`
	Actors     map[string]ActorRecord `json:"actors"`
}

// ActorSnapshot is a per-level actor census, keyed by level asset path.
type ActorSnapshot struct {
	Levels       map[string]LevelActors `json:"levels"`
	CurrentLevel string                 `json:"current_level"`
}

// Tolerances are the absolute-difference thresholds for transform
// comparison. A difference at or below the threshold is noise, not change.
type Tolerances struct {
	Position float64
	Rotation float64
}

// DefaultTolerances returns the standard comparison thresholds.
func DefaultTolerances() Tolerances {
	return Tolerances{Position: DefaultPositionTolerance, Rotation: DefaultRotationTolerance}
}

// ActorChangeReport is the diff of two actor snapshots.
type ActorChangeReport struct {
	Detected bool     `json:"detected"`
	Created  []string `json:"created"`
	Deleted  []string `json:"deleted"`
	Modified []string `json:"modified"`
	// ChangedLevels maps each level with changes to its changed actor paths.
	ChangedLevels   map[string][]string `json:"changed_levels,omitempty"`
	Warning         string              `json:"warning,omitempty"`
	LevelDiagnostic map[string]any      `json:"level_diagnostic,omitempty"`
}

// CompareActorSnapshots diffs two multi-level actor snapshots. Levels are
// diffed independently: a level present on only one side contributes all of
// its actors as created or deleted. Changes inside a scratch level attach a
// persistence warning.
func CompareActorSnapshots(before, after ActorSnapshot, tol Tolerances) ActorChangeReport {
	report := ActorChangeReport{
		Created:  []string{},
		Deleted:  []string{},
		Modified: []string{},
	}

	levelPaths := make(map[string]struct{}, len(before.Levels)+len(after.Levels))
	for path := range before.Levels {
		levelPaths[path] = struct{}{}
	}
	for path := range after.Levels {
		levelPaths[path] = struct{}{}
	}

	changedLevels := make(map[string][]string)

	for levelPath := range levelPaths {
		beforeActors := before.Levels[levelPath].Actors
		afterActors := after.Levels[levelPath].Actors

		var levelChanged []string

		for actorPath := range afterActors {
			if _, ok := beforeActors[actorPath]; !ok {
				report.Created = append(report.Created, actorPath)
				levelChanged = append(levelChanged, actorPath)
			}
		}
		for actorPath := range beforeActors {
			if _, ok := afterActors[actorPath]; !ok {
				report.Deleted = append(report.Deleted, actorPath)
				levelChanged = append(levelChanged, actorPath)
			}
		}
		for actorPath, beforeActor := range beforeActors {
			afterActor, ok := afterActors[actorPath]
			if !ok {
				continue
			}
			if actorModified(beforeActor, afterActor, tol) {
				report.Modified = append(report.Modified, actorPath)
				levelChanged = append(levelChanged, actorPath)
			}
		}

		if len(levelChanged) > 0 {
			sort.Strings(levelChanged)
			changedLevels[levelPath] = levelChanged
			if strings.HasPrefix(levelPath, TempLevelPrefix) {
				report.Warning = "Changes detected in a temporary level (" + levelPath +
					"). These changes will be lost unless the level is saved to a /Game/ path."
			}
		}
	}

	sort.Strings(report.Created)
	sort.Strings(report.Deleted)
	sort.Strings(report.Modified)
	if len(changedLevels) > 0 {
		report.ChangedLevels = changedLevels
	}
	report.Detected = len(report.Created) > 0 || len(report.Deleted) > 0 || len(report.Modified) > 0
	return report
}

func actorModified(before, after ActorRecord, tol Tolerances) bool {
	if !vectorsEqual(before.Location, after.Location, tol.Position) {
		return true
	}
	if !vectorsEqual(before.Rotation, after.Rotation, tol.Rotation) {
		return true
	}
	return !vectorsEqual(before.Scale, after.Scale, tol.Position)
}

// vectorsEqual treats a difference of exactly the tolerance as equal: the
// threshold is the largest difference still attributable to float noise.
// The threshold carries a relative slack because the difference itself is
// computed in floats: 100.001 - 100 lands a few ulps above 0.001, and a
// boundary-exact edit must not read as modified.
func vectorsEqual(a, b [3]float64, tolerance float64) bool {
	limit := tolerance * (1 + 1e-9)
	for i := range a {
		if math.Abs(a[i]-b[i]) > limit {
			return false
		}
	}
	return true
}
