package tracking

import (
	"regexp"
	"sort"
	"strings"
)

// contentPathPattern matches /Game/... asset paths inside string literals.
var contentPathPattern = regexp.MustCompile(`["'](/Game/[^"']+)["']`)

// levelAPIPatterns match editor API calls whose argument is a level asset
// path. Detecting the call keeps us from guessing which paths are levels
// based on naming conventions.
var levelAPIPatterns = []*regexp.Regexp{
	// LevelEditorSubsystem: first argument is the level path.
	regexp.MustCompile(`\.load_level\s*\(\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.new_level\s*\(\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.new_level_from_template\s*\(\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.new_level_from_template\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	// EditorLoadingAndSavingUtils.
	regexp.MustCompile(`\.load_map\s*\(\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.new_map_from_template\s*\(\s*["'](/Game/[^"']+)["']`),
	// EditorLevelUtils: second argument is the level path.
	regexp.MustCompile(`\.add_level_to_world\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.add_level_to_world_with_transform\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	// GameplayStatics: second argument is the level path.
	regexp.MustCompile(`\.open_level\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.load_stream_level\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.unload_stream_level\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	regexp.MustCompile(`\.get_streaming_level\s*\([^,]+,\s*["'](/Game/[^"']+)["']`),
	// LevelStreamingDynamic keyword argument.
	regexp.MustCompile(`level_name\s*=\s*["'](/Game/[^"']+)["']`),
}

// ExtractContentPaths scans code for /Game/... string literals and returns
// the deduplicated parent directories to snapshot. /Game/Maps/Foo becomes
// /Game/Maps/; a path directly under /Game/ becomes its own directory.
func ExtractContentPaths(code string) []string {
	dirs := make(map[string]struct{})
	for _, match := range contentPathPattern.FindAllStringSubmatch(code, -1) {
		dirs[ParentDirectory(match[1])] = struct{}{}
	}

	paths := make([]string, 0, len(dirs))
	for dir := range dirs {
		paths = append(paths, dir)
	}
	sort.Strings(paths)
	return paths
}

// ParentDirectory reduces an asset path to the directory to scan.
func ParentDirectory(assetPath string) string {
	trimmed := strings.TrimRight(assetPath, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) >= 4 {
		// /Game/Maps/TestLevel -> ["", "Game", "Maps", "TestLevel"]
		return strings.Join(parts[:len(parts)-1], "/") + "/"
	}
	return trimmed + "/"
}

// ExtractLevelPaths scans code for level-related editor API calls and
// returns the deduplicated level asset paths they reference.
func ExtractLevelPaths(code string) []string {
	seen := make(map[string]struct{})
	for _, pattern := range levelAPIPatterns {
		for _, match := range pattern.FindAllStringSubmatch(code, -1) {
			path := strings.TrimRight(match[1], "/")
			if path != "" {
				seen[path] = struct{}{}
			}
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
