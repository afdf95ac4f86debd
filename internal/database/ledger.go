package database

import (
	"time"
)

// IsDownloaded reports whether a completed ledger entry exists for the
// (fileID, segment) pair. Any existing row is sufficient to skip a
// re-download; checksums are not re-validated against the remote.
func (db *DB) IsDownloaded(fileID, segment string) (bool, error) {
	var count int64
	err := db.Model(&FileDownload{}).
		Where("file_id = ? AND segment = ?", fileID, segment).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// RecordDownload appends a completed ledger entry. Called exactly once per
// successfully downloaded (non-skipped) file.
func (db *DB) RecordDownload(fileID, fileName, segment, filePath string, fileSize int64, checksum string) error {
	entry := &FileDownload{
		FileID:       fileID,
		FileName:     fileName,
		Segment:      segment,
		DownloadDate: time.Now(),
		FilePath:     filePath,
		FileSize:     fileSize,
		Checksum:     checksum,
		Status:       DownloadStatusCompleted,
	}
	return db.Create(entry).Error
}

// RecordSession appends one run-history row per orchestration invocation.
func (db *DB) RecordSession(session *RunSession) error {
	return db.Create(session).Error
}

// Stats summarizes ledger activity over a trailing window.
type Stats struct {
	TotalFiles   int64
	TotalSizeMB  float64
	SegmentsUsed int64
	DaysActive   int64
	Segments     map[string]SegmentStats
}

type SegmentStats struct {
	Files  int64
	SizeMB float64
}

// Statistics aggregates downloads recorded in the last `days` days.
func (db *DB) Statistics(days int) (*Stats, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	stats := &Stats{Segments: make(map[string]SegmentStats)}

	var overall struct {
		TotalFiles   int64
		TotalSize    int64
		SegmentsUsed int64
		DaysActive   int64
	}
	err := db.Model(&FileDownload{}).
		Select("COUNT(*) AS total_files, COALESCE(SUM(file_size), 0) AS total_size, COUNT(DISTINCT segment) AS segments_used, COUNT(DISTINCT date(download_date)) AS days_active").
		Where("created_at >= ?", cutoff).
		Scan(&overall).Error
	if err != nil {
		return nil, err
	}

	stats.TotalFiles = overall.TotalFiles
	stats.TotalSizeMB = float64(overall.TotalSize) / (1024 * 1024)
	stats.SegmentsUsed = overall.SegmentsUsed
	stats.DaysActive = overall.DaysActive

	var perSegment []struct {
		Segment string
		Files   int64
		Size    int64
	}
	err = db.Model(&FileDownload{}).
		Select("segment, COUNT(*) AS files, COALESCE(SUM(file_size), 0) AS size").
		Where("created_at >= ?", cutoff).
		Group("segment").
		Scan(&perSegment).Error
	if err != nil {
		return nil, err
	}

	for _, row := range perSegment {
		stats.Segments[row.Segment] = SegmentStats{
			Files:  row.Files,
			SizeMB: float64(row.Size) / (1024 * 1024),
		}
	}

	return stats, nil
}

// LoadSchedulerConfig returns the persisted scheduler configuration, creating
// a default row on first use.
func (db *DB) LoadSchedulerConfig(defaultInterval int, defaultSegments string) (*SchedulerConfig, error) {
	var cfg SchedulerConfig
	err := db.First(&cfg).Error
	if err == nil {
		return &cfg, nil
	}

	cfg = SchedulerConfig{
		IntervalMinutes: defaultInterval,
		Enabled:         true,
		AutoShutdown:    true,
		Segments:        defaultSegments,
	}
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (db *DB) SaveSchedulerConfig(cfg *SchedulerConfig) error {
	return db.Save(cfg).Error
}

// SaveCredential upserts the active credential row.
func (db *DB) SaveCredential(cred *Credential) error {
	var existing Credential
	if err := db.Where("is_active = ?", true).First(&existing).Error; err == nil {
		cred.ID = existing.ID
	}
	return db.Save(cred).Error
}

func (db *DB) LoadCredential() (*Credential, error) {
	var cred Credential
	if err := db.Where("is_active = ?", true).First(&cred).Error; err != nil {
		return nil, err
	}
	return &cred, nil
}
