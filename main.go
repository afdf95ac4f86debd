package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/nse-datasync/extranet-sync/config"
	"github.com/nse-datasync/extranet-sync/internal/credstore"
	"github.com/nse-datasync/extranet-sync/internal/database"
	"github.com/nse-datasync/extranet-sync/internal/downloader"
	"github.com/nse-datasync/extranet-sync/internal/extranet"
	"github.com/nse-datasync/extranet-sync/internal/orchestrator"
	"github.com/nse-datasync/extranet-sync/internal/organizer"
	"github.com/nse-datasync/extranet-sync/internal/scheduler"
)

const version = "extranet-sync v2.0.0"

// stopWait bounds how long shutdown blocks on an in-flight cycle. Large
// trade archives can take minutes, so this errs on the generous side.
const stopWait = 5 * time.Minute

func main() {
	var (
		showVersion bool
		runOnce     bool
		showStatus  bool
		segmentsArg string
	)
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.BoolVar(&runOnce, "once", false, "Run a single download cycle and exit")
	flag.BoolVar(&showStatus, "status", false, "Print download statistics and exit")
	flag.StringVar(&segmentsArg, "segments", "", "Comma-separated segment override (e.g. CM,FO)")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if cfg.DevMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("Starting extranet-sync", "dataDir", cfg.DataDir, "downloadDir", cfg.DownloadDir)

	db, err := database.New(cfg)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	if showStatus {
		printStatus(db, cfg)
		os.Exit(0)
	}

	if err := resolveCredentials(cfg, db); err != nil {
		slog.Error("Credentials unavailable", "error", err)
		os.Exit(1)
	}

	if segmentsArg != "" {
		cfg.Segments = config.ParseSegments(segmentsArg)
	}

	fs := afero.NewOsFs()
	client := extranet.NewClient(cfg)
	org := organizer.New(fs, cfg.DownloadDir)
	engine := downloader.NewEngine(fs, db, client, org)
	orch := orchestrator.New(client, engine, db, cfg.DownloadDelay)

	if runOnce {
		summary, err := orch.Run(context.Background(), cfg.Segments)
		if err != nil {
			slog.Error("Download cycle failed", "error", err)
			os.Exit(1)
		}
		if !summary.Success {
			os.Exit(1)
		}
		return
	}

	sched := scheduler.New(orch, db, cfg.Segments, cfg.IntervalMinutes)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("Shutting down...")
	sched.Stop(stopWait)
}

// resolveCredentials fills in missing login material from the encrypted
// store, and keeps the store current when full credentials arrive via the
// environment.
func resolveCredentials(cfg *config.Config, db *database.DB) error {
	envComplete := cfg.Validate() == nil

	if cfg.VaultPassphrase == "" {
		if !envComplete {
			return cfg.Validate()
		}
		return nil
	}

	store, err := credstore.Open(db, cfg.VaultPassphrase)
	if err != nil {
		return err
	}

	if envComplete {
		err := store.Save(credstore.Credentials{
			MemberCode: cfg.MemberCode,
			LoginID:    cfg.LoginID,
			Password:   cfg.Password,
			SecretKey:  cfg.SecretKey,
		})
		if err != nil {
			slog.Warn("Could not update credential store", "error", err)
		}
		return nil
	}

	creds, err := store.Load()
	if err != nil {
		return err
	}
	cfg.MemberCode = creds.MemberCode
	cfg.LoginID = creds.LoginID
	cfg.Password = creds.Password
	cfg.SecretKey = creds.SecretKey

	slog.Info("Credentials loaded from encrypted store", "memberCode", cfg.MemberCode)
	return cfg.Validate()
}

func printStatus(db *database.DB, cfg *config.Config) {
	stats, err := db.Statistics(30)
	if err != nil {
		slog.Error("Failed to read statistics", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Last 30 days: %d files, %.2f MB across %d segments (%d active days)\n",
		stats.TotalFiles, stats.TotalSizeMB, stats.SegmentsUsed, stats.DaysActive)
	for segment, s := range stats.Segments {
		fmt.Printf("  %-4s %d files, %.2f MB\n", segment, s.Files, s.SizeMB)
	}

	schedCfg, err := db.LoadSchedulerConfig(cfg.IntervalMinutes, "")
	if err != nil {
		slog.Error("Failed to read scheduler config", "error", err)
		return
	}
	fmt.Printf("Schedule: every %d minutes, segments %s\n", schedCfg.IntervalMinutes, schedCfg.Segments)
	if schedCfg.LastRun != nil {
		fmt.Printf("Last run: %s\n", schedCfg.LastRun.Format(time.RFC3339))
	}
	if schedCfg.NextRun != nil {
		fmt.Printf("Next run: %s\n", schedCfg.NextRun.Format(time.RFC3339))
	}
}
