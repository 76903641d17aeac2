package inspector

import "fmt"

type deprecation struct {
	replacement string
	suggestion  string
}

// deprecatedAPIs maps (class, method) under the unreal module to the
// subsystem-based replacement. The editor rejects or misbehaves on most of
// these, so they block instead of warn.
var deprecatedAPIs = map[[2]string]deprecation{
	{"EditorLevelLibrary", "new_level"}: {
		"LevelEditorSubsystem.new_level()",
		"level_subsystem = unreal.get_editor_subsystem(unreal.LevelEditorSubsystem)\n" +
			"level_subsystem.new_level(level_path)",
	},
	{"EditorLevelLibrary", "load_level"}: {
		"LevelEditorSubsystem.load_level()",
		"level_subsystem = unreal.get_editor_subsystem(unreal.LevelEditorSubsystem)\n" +
			"level_subsystem.load_level(level_path)",
	},
	{"EditorLevelLibrary", "save_current_level"}: {
		"LevelEditorSubsystem.save_current_level()",
		"level_subsystem = unreal.get_editor_subsystem(unreal.LevelEditorSubsystem)\n" +
			"level_subsystem.save_current_level()",
	},
	{"EditorLevelLibrary", "save_all_dirty_levels"}: {
		"LevelEditorSubsystem.save_all_dirty_levels()",
		"level_subsystem = unreal.get_editor_subsystem(unreal.LevelEditorSubsystem)\n" +
			"level_subsystem.save_all_dirty_levels()",
	},
	{"EditorLevelLibrary", "get_editor_world"}: {
		"UnrealEditorSubsystem.get_editor_world()",
		"editor_subsystem = unreal.get_editor_subsystem(unreal.UnrealEditorSubsystem)\n" +
			"editor_subsystem.get_editor_world()",
	},
	{"EditorLevelLibrary", "spawn_actor_from_class"}: {
		"EditorActorSubsystem.spawn_actor_from_class()",
		"actor_subsystem = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)\n" +
			"actor_subsystem.spawn_actor_from_class(actor_class, location)",
	},
	{"EditorLevelLibrary", "spawn_actor_from_object"}: {
		"EditorActorSubsystem.spawn_actor_from_object()",
		"actor_subsystem = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)\n" +
			"actor_subsystem.spawn_actor_from_object(object, location)",
	},
	{"EditorLevelLibrary", "destroy_actor"}: {
		"EditorActorSubsystem.destroy_actor()",
		"actor_subsystem = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)\n" +
			"actor_subsystem.destroy_actor(actor)",
	},
	{"EditorLevelLibrary", "get_all_level_actors"}: {
		"EditorActorSubsystem.get_all_level_actors()",
		"actor_subsystem = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)\n" +
			"actor_subsystem.get_all_level_actors()",
	},
	{"EditorLevelLibrary", "get_selected_level_actors"}: {
		"EditorActorSubsystem.get_selected_level_actors()",
		"actor_subsystem = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)\n" +
			"actor_subsystem.get_selected_level_actors()",
	},
}

// DeprecatedAPIChecker reports calls to editor APIs that were replaced by
// subsystem equivalents.
type DeprecatedAPIChecker struct{}

// NewDeprecatedAPIChecker creates the checker.
func NewDeprecatedAPIChecker() *DeprecatedAPIChecker { return &DeprecatedAPIChecker{} }

func (c *DeprecatedAPIChecker) Name() string { return "DeprecatedAPIChecker" }

func (c *DeprecatedAPIChecker) Description() string {
	return "Detects usage of deprecated UE5 Python APIs"
}

func (c *DeprecatedAPIChecker) Check(scan *Scan) []Issue {
	var issues []Issue
	for _, call := range scan.Calls {
		// Pattern: <unreal-alias>.<Class>.<method>(...).
		if len(call.Path) != 3 {
			continue
		}
		if module, ok := scan.ModuleAliases[call.Path[0]]; !ok || module != "unreal" {
			continue
		}
		key := [2]string{call.Path[1], call.Path[2]}
		dep, ok := deprecatedAPIs[key]
		if !ok {
			continue
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Checker:  c.Name(),
			Message: fmt.Sprintf("Deprecated API: 'unreal.%s.%s()' - use '%s' instead",
				key[0], key[1], dep.replacement),
			Line:       call.Line,
			Suggestion: "Replace with:\n    " + dep.suggestion,
		})
	}
	return issues
}
