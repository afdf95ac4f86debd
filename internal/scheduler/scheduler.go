package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nse-datasync/extranet-sync/internal/database"
	"github.com/nse-datasync/extranet-sync/internal/orchestrator"
)

const (
	stateIdle int32 = iota
	stateRunning
)

type runner interface {
	Run(ctx context.Context, segments []string) (*orchestrator.Summary, error)
}

type configStore interface {
	LoadSchedulerConfig(defaultInterval int, defaultSegments string) (*database.SchedulerConfig, error)
	SaveSchedulerConfig(cfg *database.SchedulerConfig) error
}

// Scheduler fires a download cycle on a fixed interval. A trigger that
// arrives while a cycle is still running is dropped, never queued; cycles
// run to completion and are not cancelled mid-file.
type Scheduler struct {
	runner   runner
	store    configStore
	segments []string
	interval int

	cron    *cron.Cron
	entryID cron.EntryID
	state   atomic.Int32
	wg      sync.WaitGroup
}

// New builds a scheduler. The persisted scheduler configuration, when
// present, overrides the interval and segments passed in; store may be nil.
func New(runner runner, store configStore, segments []string, intervalMinutes int) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		store:    store,
		segments: segments,
		interval: intervalMinutes,
		cron:     cron.New(),
	}

	if store != nil {
		cfg, err := store.LoadSchedulerConfig(intervalMinutes, strings.Join(segments, ","))
		if err != nil {
			slog.Error("Failed to load scheduler config, using defaults", "error", err)
		} else {
			s.interval = cfg.IntervalMinutes
			if cfg.Segments != "" {
				s.segments = strings.Split(cfg.Segments, ",")
			}
		}
	}

	return s
}

// Start registers the interval job and launches an immediate first cycle.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %dm", s.interval)
	entryID, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return fmt.Errorf("register schedule %q: %w", spec, err)
	}
	s.entryID = entryID
	s.cron.Start()

	slog.Info("Scheduler started", "intervalMinutes", s.interval, "segments", s.segments)
	s.TriggerNow()
	return nil
}

// TriggerNow starts a cycle immediately unless one is already running, and
// reports whether the trigger was accepted.
func (s *Scheduler) TriggerNow() bool {
	if !s.state.CompareAndSwap(stateIdle, stateRunning) {
		slog.Warn("Download cycle already running, trigger dropped")
		return false
	}
	s.wg.Add(1)
	go s.cycle()
	return true
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool {
	return s.state.Load() == stateRunning
}

// Stop halts future triggers and waits up to the given duration for an
// in-flight cycle to finish. Files are never abandoned mid-download.
func (s *Scheduler) Stop(wait time.Duration) {
	<-s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Scheduler stopped")
	case <-time.After(wait):
		slog.Warn("Scheduler stop timed out with a cycle still running", "waited", wait)
	}
}

func (s *Scheduler) runScheduled() {
	if !s.TriggerNow() {
		slog.Warn("Scheduled cycle skipped, previous cycle still running")
	}
}

// cycle assumes the state was already claimed by the caller.
func (s *Scheduler) cycle() {
	defer s.wg.Done()
	defer s.state.Store(stateIdle)

	summary, err := s.runner.Run(context.Background(), s.segments)
	if err != nil {
		slog.Error("Download cycle failed", "error", err)
	} else {
		slog.Info("Download cycle finished",
			"success", summary.Success,
			"segmentsCompleted", summary.SegmentsCompleted,
			"filesDownloaded", summary.FilesDownloaded)
	}

	s.touchConfig()
}

// touchConfig persists the run timestamps so status queries survive
// restarts.
func (s *Scheduler) touchConfig() {
	if s.store == nil {
		return
	}

	cfg, err := s.store.LoadSchedulerConfig(s.interval, strings.Join(s.segments, ","))
	if err != nil {
		slog.Error("Failed to load scheduler config", "error", err)
		return
	}

	now := time.Now()
	cfg.LastRun = &now
	if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
		cfg.NextRun = &next
	}
	if err := s.store.SaveSchedulerConfig(cfg); err != nil {
		slog.Error("Failed to save scheduler config", "error", err)
	}
}
