package tracking

import "sort"

// AssetRecord is one asset's identity inside a snapshot. ExternalFileCount
// is present for container assets (levels) whose storage mode splits one
// logical asset across many files.
type AssetRecord struct {
	AssetType         string  `json:"asset_type"`
	Timestamp         float64 `json:"timestamp"`
	ExternalFileCount *int    `json:"external_file_count,omitempty"`
}

// AssetSnapshot is a point-in-time view of every asset under the scanned
// directory prefixes. Paths outside the prefixes are absent, not deleted.
type AssetSnapshot struct {
	Assets       map[string]AssetRecord `json:"assets"`
	ScannedPaths []string               `json:"scanned_paths"`
}

// ChangedAsset identifies one created, deleted, or modified asset.
type ChangedAsset struct {
	Path      string `json:"path"`
	AssetType string `json:"asset_type,omitempty"`
}

// ChangeReport is the diff of two asset snapshots.
type ChangeReport struct {
	Detected     bool           `json:"detected"`
	Created      []ChangedAsset `json:"created"`
	Deleted      []ChangedAsset `json:"deleted"`
	Modified     []ChangedAsset `json:"modified"`
	ScannedPaths []string       `json:"scanned_paths"`
	Details      map[string]any `json:"details,omitempty"`
}

// CompareAssetSnapshots diffs two snapshots taken over the same scan set.
// Set difference on path keys gives created and deleted; for surviving keys
// a timestamp increase means modified, and for container assets a change in
// external file count also means modified even when the main file's
// timestamp held still.
func CompareAssetSnapshots(before, after AssetSnapshot) ChangeReport {
	report := ChangeReport{
		Created:      []ChangedAsset{},
		Deleted:      []ChangedAsset{},
		Modified:     []ChangedAsset{},
		ScannedPaths: after.ScannedPaths,
	}

	for path, record := range after.Assets {
		if _, ok := before.Assets[path]; !ok {
			report.Created = append(report.Created, ChangedAsset{Path: path, AssetType: record.AssetType})
		}
	}
	for path, record := range before.Assets {
		if _, ok := after.Assets[path]; !ok {
			report.Deleted = append(report.Deleted, ChangedAsset{Path: path, AssetType: record.AssetType})
		}
	}

	for path, beforeRecord := range before.Assets {
		afterRecord, ok := after.Assets[path]
		if !ok {
			continue
		}
		modified := afterRecord.Timestamp > beforeRecord.Timestamp
		if !modified && beforeRecord.ExternalFileCount != nil && afterRecord.ExternalFileCount != nil {
			modified = *beforeRecord.ExternalFileCount != *afterRecord.ExternalFileCount
		}
		if modified {
			report.Modified = append(report.Modified, ChangedAsset{Path: path, AssetType: afterRecord.AssetType})
		}
	}

	sortChanged(report.Created)
	sortChanged(report.Deleted)
	sortChanged(report.Modified)
	report.Detected = len(report.Created) > 0 || len(report.Deleted) > 0 || len(report.Modified) > 0
	return report
}

func sortChanged(assets []ChangedAsset) {
	sort.Slice(assets, func(i, j int) bool { return assets[i].Path < assets[j].Path })
}
