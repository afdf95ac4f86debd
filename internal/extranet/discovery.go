package extranet

import (
	"context"
	"log/slog"
	"net/http"
)

// candidatePaths returns the remote folders worth probing for a segment, in
// priority order. The extranet has no directory-discovery API; the general
// Onlinebackup root is the most likely location, followed by member-qualified
// paths and the segment-specific FTP-style trees.
func candidatePaths(segment, memberCode string) []string {
	paths := []string{
		"/Onlinebackup",
		"/",
		"/" + memberCode + "/Onlinebackup",
		"/" + memberCode,
	}

	switch segment {
	case "FO":
		paths = append(paths,
			"/faoftp/F"+memberCode+"/Onlinebackup",
			"/faoftp/F"+memberCode,
			"/faoftp",
		)
	case "CM":
		paths = append(paths,
			"/cmftp/"+memberCode+"/Onlinebackup",
			"/cmftp/"+memberCode,
			"/cmftp",
		)
	case "SLB":
		paths = append(paths,
			"/slbftp/S"+memberCode+"/Onlinebackup",
			"/slbftp/S"+memberCode,
			"/slbftp",
		)
	}

	return paths
}

// GetFileList probes the candidate paths in order and returns the normalized
// records from the first path yielding at least one acceptable file. A 404
// means the path does not exist and is not an error. An empty result means no
// candidate produced files; the orchestrator reports that as a per-segment
// failure.
func (c *Client) GetFileList(ctx context.Context, segment string) []FileRecord {
	slog.Info("Fetching file list", "segment", segment)

	for _, folderPath := range candidatePaths(segment, c.memberCode) {
		slog.Debug("Trying path", "segment", segment, "folderPath", folderPath)

		result, status, err := c.listFolder(ctx, segment, folderPath)
		if err != nil {
			slog.Error("Listing call failed", "segment", segment, "folderPath", folderPath, "error", err)
			continue
		}
		if result == nil {
			if status == http.StatusNotFound {
				slog.Debug("Path not found", "segment", segment, "folderPath", folderPath)
			} else {
				slog.Debug("Listing rejected", "segment", segment, "folderPath", folderPath, "status", status)
			}
			continue
		}
		if !result.success() {
			slog.Debug("Listing returned non-success code", "segment", segment, "folderPath", folderPath, "code", result.code())
			continue
		}

		records := normalizeEntries(result.Data, folderPath)
		if len(records) > 0 {
			slog.Info("Found files", "segment", segment, "folderPath", folderPath, "count", len(records))
			return records
		}
		slog.Debug("No files at path", "segment", segment, "folderPath", folderPath)
	}

	slog.Warn("No files found in any candidate path", "segment", segment)
	return nil
}
