package remoteexec

import (
	"encoding/json"
	"sort"
)

// Candidate is one editor instance that replied on the discovery channel.
type Candidate struct {
	NodeID        string
	ProjectName   string
	EngineVersion string
}

// parseCandidate decodes a discovery reply into a candidate. Replies that are
// not pongs, carry the wrong magic, or echo our own ping are rejected.
func parseCandidate(msg Message, selfSource string) (Candidate, bool) {
	if !msg.Valid() || msg.Type != TypePong {
		return Candidate{}, false
	}
	if msg.Source == "" || msg.Source == selfSource {
		return Candidate{}, false
	}
	var data PongData
	if len(msg.Data) > 0 {
		// A pong without a decodable payload is still a live instance.
		_ = json.Unmarshal(msg.Data, &data)
	}
	return Candidate{
		NodeID:        msg.Source,
		ProjectName:   data.ProjectName,
		EngineVersion: data.EngineVersion,
	}, true
}

// filterCandidates deduplicates replies by node id and applies the optional
// project-name and node-id filters.
func filterCandidates(candidates []Candidate, projectName, expectedNodeID string) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	filtered := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if expectedNodeID != "" && c.NodeID != expectedNodeID {
			continue
		}
		if projectName != "" && c.ProjectName != "" && c.ProjectName != projectName {
			continue
		}
		if _, dup := seen[c.NodeID]; dup {
			continue
		}
		seen[c.NodeID] = struct{}{}
		filtered = append(filtered, c)
	}
	return filtered
}

// selectCandidate picks one instance deterministically when several survive
// filtering: the lexicographically smallest node id wins. The second return
// reports whether more than one candidate was available, so the caller can
// log the ambiguity or fail in strict mode.
func selectCandidate(candidates []Candidate) (Candidate, bool, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false, false
	}
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID < sorted[j].NodeID })
	return sorted[0], true, len(sorted) > 1
}
