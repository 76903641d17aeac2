package tracking

import (
	"encoding/json"
	"fmt"
)

// The introspection scripts below are a fixed set of parameterized
// templates. Parameters are substituted as JSON literals only; callers
// never concatenate free-form code into them.

const currentLevelScript = `import unreal

try:
    editor_subsystem = unreal.get_editor_subsystem(unreal.UnrealEditorSubsystem)
    world = editor_subsystem.get_editor_world()
    if world:
        level = world.get_outer()
        if level:
            path = level.get_path_name()
            if path.startswith("/Game/"):
                print("CURRENT_LEVEL_PATH:" + path)
            else:
                print("CURRENT_LEVEL_PATH:NONE")
        else:
            print("CURRENT_LEVEL_PATH:NONE")
    else:
        print("CURRENT_LEVEL_PATH:NONE")
except Exception:
    print("CURRENT_LEVEL_PATH:NONE")
`

const dirtyPackagesScript = `import json
import unreal

try:
    dirty_content = unreal.EditorLoadingAndSavingUtils.get_dirty_content_packages()
    dirty_maps = unreal.EditorLoadingAndSavingUtils.get_dirty_map_packages()
    paths = []
    for pkg in dirty_content:
        if pkg:
            paths.append(pkg.get_path_name())
    for pkg in dirty_maps:
        if pkg:
            paths.append(pkg.get_path_name())
    print(json.dumps({"success": True, "paths": paths}))
except AttributeError:
    print(json.dumps({"success": True, "paths": []}))
except Exception as e:
    print(json.dumps({"success": False, "error": str(e), "paths": []}))
`

const assetSnapshotTemplate = `import json
import os
import unreal

scan_paths = %s
project_dir = %s

assets = {}
registry = unreal.AssetRegistryHelpers.get_asset_registry()
for scan_path in scan_paths:
    asset_data_list = registry.get_assets_by_path(scan_path.rstrip("/"), recursive=True)
    for asset_data in asset_data_list:
        try:
            path = str(asset_data.package_name)
            asset_type = str(asset_data.asset_class_path.asset_name)
            record = {"asset_type": asset_type, "timestamp": 0}
            rel = path.replace("/Game/", "Content/", 1) + ".uasset"
            if asset_type == "World":
                rel = path.replace("/Game/", "Content/", 1) + ".umap"
            fs_path = os.path.join(project_dir, rel)
            if os.path.exists(fs_path):
                record["timestamp"] = os.path.getmtime(fs_path)
            if asset_type == "World":
                ext_dir = os.path.join(project_dir, "Content", "__ExternalActors__",
                                       path.replace("/Game/", "", 1))
                count = 0
                if os.path.isdir(ext_dir):
                    for _root, _dirs, files in os.walk(ext_dir):
                        count += len(files)
                record["external_file_count"] = count
            assets[path] = record
        except Exception:
            continue

print("SNAPSHOT_RESULT:" + json.dumps({"assets": assets, "scanned_paths": scan_paths}))
`

const actorSnapshotTemplate = `import json
import unreal

level_paths_to_check = %s

try:
    editor_sub = unreal.get_editor_subsystem(unreal.UnrealEditorSubsystem)
    actor_sub = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)
    world = editor_sub.get_editor_world()
    if not world:
        print("ACTOR_SNAPSHOT_RESULT:" + json.dumps({"error": "No world loaded"}))
    else:
        current_level = world.get_outer()
        current_level_path = current_level.get_path_name() if current_level else "Unknown"
        current_asset_path = current_level_path.split(".")[0]

        levels_data = {}
        actors_data = {}
        for actor in actor_sub.get_all_level_actors():
            try:
                loc = actor.get_actor_location()
                rot = actor.get_actor_rotation()
                scale = actor.get_actor_scale3d()
                actors_data[actor.get_path_name()] = {
                    "label": actor.get_actor_label(),
                    "class": actor.get_class().get_name(),
                    "location": [loc.x, loc.y, loc.z],
                    "rotation": [rot.roll, rot.pitch, rot.yaw],
                    "scale": [scale.x, scale.y, scale.z],
                }
            except Exception:
                continue
        levels_data[current_asset_path] = {
            "level_path": current_level_path,
            "actor_count": len(actors_data),
            "actors": actors_data,
        }

        # Requested levels that are not loaded appear with no actors so the
        # diff can report wholesale loads/unloads per level.
        for requested in level_paths_to_check:
            if requested not in levels_data:
                levels_data[requested] = {
                    "level_path": requested,
                    "actor_count": 0,
                    "actors": {},
                }

        print("ACTOR_SNAPSHOT_RESULT:" + json.dumps({
            "levels": levels_data,
            "current_level": current_level_path,
        }))
except Exception as e:
    print("ACTOR_SNAPSHOT_RESULT:" + json.dumps({"error": str(e)}))
`

const levelDiagnosticTemplate = `import json
import unreal

level_path = %s

report = {"level_path": level_path, "success": True}
try:
    editor_sub = unreal.get_editor_subsystem(unreal.UnrealEditorSubsystem)
    actor_sub = unreal.get_editor_subsystem(unreal.EditorActorSubsystem)
    world = editor_sub.get_editor_world()
    if not world:
        report = {"level_path": level_path, "success": False, "error": "No world loaded"}
    else:
        actors = actor_sub.get_all_level_actors()
        class_counts = {}
        unbound = []
        for actor in actors:
            cls = actor.get_class().get_name()
            class_counts[cls] = class_counts.get(cls, 0) + 1
            if not actor.get_attach_parent_actor() and not actor.root_component:
                unbound.append(actor.get_path_name())
        report["actor_count"] = len(actors)
        report["class_counts"] = class_counts
        if unbound:
            report["actors_without_root_component"] = unbound
except Exception as e:
    report = {"level_path": level_path, "success": False, "error": str(e)}

print("MCP_RESULT:" + json.dumps(report))
`

const assetInspectTemplate = `import json
import unreal

asset_path = %s

report = {"path": asset_path, "success": True}
try:
    asset_data = unreal.EditorAssetLibrary.find_asset_data(asset_path)
    if not asset_data.is_valid():
        report = {"path": asset_path, "success": False, "error": "Asset not found"}
    else:
        report["asset_type"] = str(asset_data.asset_class_path.asset_name)
        asset = unreal.EditorAssetLibrary.load_asset(asset_path)
        if asset:
            report["object_name"] = asset.get_name()
            if isinstance(asset, unreal.Blueprint):
                subobject_sub = unreal.get_engine_subsystem(unreal.SubobjectDataSubsystem)
                handles = subobject_sub.k2_gather_subobject_data_for_blueprint(asset) or []
                components = []
                for handle in handles:
                    data = subobject_sub.k2_find_subobject_data_from_handle(handle)
                    obj = unreal.SubobjectDataBlueprintFunctionLibrary.get_object(data)
                    if obj:
                        components.append(obj.get_name())
                report["available_components"] = components
        else:
            report["success"] = False
            report["error"] = "Asset exists but failed to load"
except Exception as e:
    report = {"path": asset_path, "success": False, "error": str(e)}

print("MCP_RESULT:" + json.dumps(report))
`

func pyJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(data)
}

func assetSnapshotScript(paths []string, projectDir string) string {
	return fmt.Sprintf(assetSnapshotTemplate, pyJSON(paths), pyJSON(projectDir))
}

func actorSnapshotScript(levelPaths []string) string {
	return fmt.Sprintf(actorSnapshotTemplate, pyJSON(levelPaths))
}

func levelDiagnosticScript(levelPath string) string {
	return fmt.Sprintf(levelDiagnosticTemplate, pyJSON(levelPath))
}

func assetInspectScript(assetPath string) string {
	return fmt.Sprintf(assetInspectTemplate, pyJSON(assetPath))
}
