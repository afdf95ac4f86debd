package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nse-datasync/extranet-sync/internal/database"
	"github.com/nse-datasync/extranet-sync/internal/downloader"
	"github.com/nse-datasync/extranet-sync/internal/extranet"
)

// client is the extranet surface the orchestrator drives.
type client interface {
	Login(ctx context.Context) error
	Logout()
	CheckAccess(ctx context.Context, segment string) bool
	GetFileList(ctx context.Context, segment string) []extranet.FileRecord
}

type engine interface {
	Fetch(ctx context.Context, segment string, file extranet.FileRecord) downloader.Result
}

type sessionRecorder interface {
	RecordSession(session *database.RunSession) error
}

// SegmentResult aggregates one segment's sweep. A segment completes when
// its listing produced files and the sweep ran; individual file failures
// are counted but do not demote the segment.
type SegmentResult struct {
	Segment         string
	Success         bool
	Error           string
	FilesDownloaded int
	FilesFailed     int
	TotalSizeMB     float64
}

// Summary aggregates a full run. Success means at least one segment
// completed.
type Summary struct {
	SessionID         string
	Success           bool
	SegmentsCompleted int
	SegmentsFailed    int
	FilesDownloaded   int
	FilesFailed       int
	TotalSizeMB       float64
	Segments          []SegmentResult
}

// Orchestrator runs one full download cycle: login, per-segment access
// checks, sequential segment sweeps and a run-history row at the end.
type Orchestrator struct {
	client   client
	engine   engine
	sessions sessionRecorder
	delay    time.Duration
}

func New(client client, engine engine, sessions sessionRecorder, delay time.Duration) *Orchestrator {
	return &Orchestrator{client: client, engine: engine, sessions: sessions, delay: delay}
}

// Run sweeps the given segments in order. Login failure aborts the whole
// run; a denied or empty segment fails only that segment. Access is
// probed fresh on every run since entitlements change server-side.
func (o *Orchestrator) Run(ctx context.Context, segments []string) (*Summary, error) {
	summary := &Summary{SessionID: uuid.NewString()}
	start := time.Now()

	slog.Info("Starting download cycle", "sessionID", summary.SessionID, "segments", segments)

	if err := o.client.Login(ctx); err != nil {
		summary.SegmentsFailed = len(segments)
		o.recordSession(summary, segments, start, database.SessionStatusError, err.Error())
		return summary, fmt.Errorf("login: %w", err)
	}
	defer o.client.Logout()

	var denied []string
	for _, segment := range segments {
		if o.client.CheckAccess(ctx, segment) {
			continue
		}
		denied = append(denied, segment)
		summary.SegmentsFailed++
		summary.Segments = append(summary.Segments, SegmentResult{
			Segment: segment,
			Error:   "No access to segment",
		})
	}

	for _, segment := range segments {
		if slices.Contains(denied, segment) {
			continue
		}

		result := o.runSegment(ctx, segment)
		summary.Segments = append(summary.Segments, result)

		if result.Success {
			summary.SegmentsCompleted++
			summary.FilesDownloaded += result.FilesDownloaded
			summary.FilesFailed += result.FilesFailed
			summary.TotalSizeMB += result.TotalSizeMB
		} else {
			summary.SegmentsFailed++
		}
	}

	summary.Success = summary.SegmentsCompleted > 0

	status := database.SessionStatusSuccess
	var errText string
	switch {
	case summary.SegmentsCompleted == 0:
		status = database.SessionStatusError
		errText = "no segments completed"
	case summary.SegmentsFailed > 0:
		status = database.SessionStatusPartialSuccess
	}
	o.recordSession(summary, segments, start, status, errText)

	slog.Info("Download cycle completed",
		"sessionID", summary.SessionID,
		"segmentsCompleted", summary.SegmentsCompleted,
		"segmentsFailed", summary.SegmentsFailed,
		"filesDownloaded", summary.FilesDownloaded)

	return summary, nil
}

func (o *Orchestrator) runSegment(ctx context.Context, segment string) SegmentResult {
	result := SegmentResult{Segment: segment}

	slog.Info("Processing segment", "segment", segment)

	files := o.client.GetFileList(ctx, segment)
	if len(files) == 0 {
		result.Error = "No files found"
		return result
	}

	slog.Info("Found files", "segment", segment, "count", len(files))

	var totalBytes int64
	for i, file := range files {
		slog.Info("Processing file", "segment", segment, "file", file.Name, "index", i+1, "total", len(files))

		fetched := o.engine.Fetch(ctx, segment, file)
		if fetched.Success {
			result.FilesDownloaded++
			if fetched.Status == downloader.StatusDownloaded {
				totalBytes += fetched.Size
			}
		} else {
			result.FilesFailed++
			slog.Error("File download failed", "segment", segment, "file", file.Name, "error", fetched.Error)
		}

		select {
		case <-ctx.Done():
			result.Error = ctx.Err().Error()
			return result
		case <-time.After(o.delay):
		}
	}

	result.Success = true
	result.TotalSizeMB = float64(totalBytes) / (1024 * 1024)

	slog.Info("Segment completed",
		"segment", segment,
		"downloaded", result.FilesDownloaded,
		"failed", result.FilesFailed,
		"sizeMB", result.TotalSizeMB)
	return result
}

func (o *Orchestrator) recordSession(summary *Summary, segments []string, start time.Time, status, errText string) {
	if o.sessions == nil {
		return
	}

	session := &database.RunSession{
		SessionID:       summary.SessionID,
		StartTime:       start,
		EndTime:         time.Now(),
		Status:          status,
		Segments:        strings.Join(segments, ","),
		FilesDownloaded: summary.FilesDownloaded,
		FilesFailed:     summary.FilesFailed,
		TotalSizeMB:     summary.TotalSizeMB,
		Errors:          errText,
	}
	if err := o.sessions.RecordSession(session); err != nil {
		slog.Error("Failed to record run session", "sessionID", summary.SessionID, "error", err)
	}
}
