package extranet

import (
	"encoding/json"
	"strings"
)

// listingEntry covers the union of key names the extranet uses for listing
// items. Some deployments return bare filename strings instead; those are
// handled separately in normalizeEntries.
type listingEntry struct {
	Name         string `json:"name"`
	FileName     string `json:"fileName"`
	Type         string `json:"type"`
	Size         int64  `json:"size"`
	FileSize     int64  `json:"fileSize"`
	LastUpdated  string `json:"lastUpdated"`
	LastModified string `json:"lastModified"`
}

// normalizeEntries maps raw listing items into FileRecords. Folders and
// entries with no resolvable filename are dropped silently; ambiguity never
// propagates past this function.
func normalizeEntries(raw []json.RawMessage, folderPath string) []FileRecord {
	records := make([]FileRecord, 0, len(raw))

	for _, item := range raw {
		var entry listingEntry
		if err := json.Unmarshal(item, &entry); err == nil && (entry.Name != "" || entry.FileName != "") {
			if entry.Type == "Folder" {
				continue
			}
			name := entry.FileName
			if name == "" {
				name = entry.Name
			}
			if !acceptableFile(name) {
				continue
			}
			size := entry.Size
			if size == 0 {
				size = entry.FileSize
			}
			lastModified := entry.LastUpdated
			if lastModified == "" {
				lastModified = entry.LastModified
			}
			records = append(records, FileRecord{
				Name:         name,
				ID:           name,
				Size:         size,
				LastModified: lastModified,
				FolderPath:   folderPath,
			})
			continue
		}

		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			if strings.Contains(name, ".") {
				records = append(records, FileRecord{
					Name:       name,
					ID:         name,
					FolderPath: folderPath,
				})
			}
		}
	}

	return records
}

// acceptableFile matches the extension set the backup folders publish: any
// dotted name, with .gz/.csv/.txt called out explicitly.
func acceptableFile(name string) bool {
	if name == "" {
		return false
	}
	return strings.HasSuffix(name, ".gz") ||
		strings.HasSuffix(name, ".csv") ||
		strings.HasSuffix(name, ".txt") ||
		strings.Contains(name, ".")
}
