// Package tracking detects what an executed script changed inside the
// editor: it snapshots bounded sets of assets and actors before and after
// execution, diffs the snapshots into change reports, and enriches reports
// with follow-up diagnostics for the entities that changed.
package tracking

import "strings"

// Output markers used by the injected introspection scripts. The scripts
// print one marker followed by a JSON payload; everything else on the
// channel is arbitrary editor log noise.
const (
	MarkerSnapshotResult      = "SNAPSHOT_RESULT:"
	MarkerActorSnapshotResult = "ACTOR_SNAPSHOT_RESULT:"
	MarkerCurrentLevelPath    = "CURRENT_LEVEL_PATH:"
	MarkerResult              = "MCP_RESULT:"
)

// ExtractMarkerJSON locates marker in output and returns the JSON object
// following it. The end of the payload is found by brace counting, since
// the JSON may contain nested braces and the editor appends unrelated log
// lines after it.
func ExtractMarkerJSON(output, marker string) (string, bool) {
	_, rest, found := strings.Cut(output, marker)
	if !found {
		return "", false
	}
	rest = strings.TrimSpace(rest)

	depth := 0
	inString := false
	escaped := false
	for i, ch := range rest {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[:i+1], true
			}
		}
	}
	return "", false
}

// ExtractMarkerLine returns the remainder of the line following marker,
// trimmed. Used for single-value markers like the current level path.
func ExtractMarkerLine(output, marker string) (string, bool) {
	_, rest, found := strings.Cut(output, marker)
	if !found {
		return "", false
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(line), true
}
