package database

import "time"

// FileDownload is the download ledger. One row per successfully completed
// download; rows are never updated or removed by the pipeline.
type FileDownload struct {
	ID           uint   `gorm:"primaryKey"`
	FileID       string `gorm:"index:idx_file_segment"`
	FileName     string
	Segment      string `gorm:"index:idx_file_segment;index:idx_segment_date"`
	DownloadDate time.Time `gorm:"index:idx_segment_date"`
	FilePath     string
	FileSize     int64
	Checksum     string
	Status       string `gorm:"default:completed"`
	CreatedAt    time.Time
}

// RunSession records one orchestration invocation, append-only.
type RunSession struct {
	ID              uint   `gorm:"primaryKey"`
	SessionID       string `gorm:"uniqueIndex"`
	StartTime       time.Time
	EndTime         time.Time
	Status          string
	Segments        string
	FilesDownloaded int
	FilesFailed     int
	TotalSizeMB     float64
	Errors          string
}

type SchedulerConfig struct {
	ID              uint `gorm:"primaryKey"`
	IntervalMinutes int
	Enabled         bool `gorm:"default:true"`
	AutoShutdown    bool `gorm:"default:true"`
	Segments        string
	LastRun         *time.Time
	NextRun         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	Category  string `gorm:"default:general"`
	UpdatedAt time.Time
}

// Credential holds the member's extranet login, with the password encrypted
// at rest by the credential store.
type Credential struct {
	ID                uint `gorm:"primaryKey"`
	MemberCode        string
	LoginID           string
	EncryptedPassword []byte
	SecretKey         string
	LastVerified      *time.Time
	IsActive          bool `gorm:"default:true"`
}

const (
	DownloadStatusCompleted = "completed"

	SessionStatusSuccess        = "success"
	SessionStatusPartialSuccess = "partial_success"
	SessionStatusError          = "error"
)

const (
	SettingVaultSalt = "vault_salt"
)
