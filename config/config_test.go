package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NSE_MEMBER_CODE", "NSE_LOGIN_ID", "NSE_PASSWORD", "NSE_SECRET_KEY",
		"NSE_VAULT_PASSPHRASE", "NSE_BASE_URL", "NSE_DOWNLOAD_DIR", "NSE_DATA_DIR",
		"NSE_DB_DRIVER", "NSE_DB_DSN", "NSE_SEGMENTS", "NSE_INTERVAL_MINUTES",
		"NSE_LIST_TIMEOUT", "NSE_DOWNLOAD_TIMEOUT", "NSE_DOWNLOAD_DELAY_MS",
		"NSE_DEV_MODE",
	} {
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("NSE_DATA_DIR", filepath.Join(tmpDir, "data"))
	os.Setenv("NSE_DOWNLOAD_DIR", filepath.Join(tmpDir, "downloads"))
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBDriver != "sqlite" {
		t.Errorf("DBDriver = %q, want sqlite", cfg.DBDriver)
	}
	if cfg.BaseURL != "https://www.connect2nse.com/extranet-api" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want 30", cfg.IntervalMinutes)
	}
	if cfg.ListTimeout != 30*time.Second {
		t.Errorf("ListTimeout = %v, want 30s", cfg.ListTimeout)
	}
	if cfg.DownloadTimeout != 300*time.Second {
		t.Errorf("DownloadTimeout = %v, want 5m", cfg.DownloadTimeout)
	}
	if cfg.DownloadDelay != 500*time.Millisecond {
		t.Errorf("DownloadDelay = %v, want 500ms", cfg.DownloadDelay)
	}
	if !reflect.DeepEqual(cfg.Segments, []string{"CM", "FO", "SLB"}) {
		t.Errorf("Segments = %v, want [CM FO SLB]", cfg.Segments)
	}
	if cfg.DevMode {
		t.Error("DevMode should be false by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("NSE_MEMBER_CODE", "06471")
	os.Setenv("NSE_LOGIN_ID", "OPS1")
	os.Setenv("NSE_PASSWORD", "hunter2")
	os.Setenv("NSE_SECRET_KEY", "c2VjcmV0")
	os.Setenv("NSE_DATA_DIR", filepath.Join(tmpDir, "data"))
	os.Setenv("NSE_DOWNLOAD_DIR", filepath.Join(tmpDir, "downloads"))
	os.Setenv("NSE_DB_DRIVER", "postgres")
	os.Setenv("NSE_DB_DSN", "postgres://localhost/nse")
	os.Setenv("NSE_SEGMENTS", "cm, fo")
	os.Setenv("NSE_INTERVAL_MINUTES", "15")
	os.Setenv("NSE_DEV_MODE", "true")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.MemberCode != "06471" {
		t.Errorf("MemberCode = %q, want 06471", cfg.MemberCode)
	}
	if cfg.DBDriver != "postgres" {
		t.Errorf("DBDriver = %q, want postgres", cfg.DBDriver)
	}
	if cfg.DBDSN != "postgres://localhost/nse" {
		t.Errorf("DBDSN = %q", cfg.DBDSN)
	}
	if !reflect.DeepEqual(cfg.Segments, []string{"CM", "FO"}) {
		t.Errorf("Segments = %v, want [CM FO]", cfg.Segments)
	}
	if cfg.IntervalMinutes != 15 {
		t.Errorf("IntervalMinutes = %d, want 15", cfg.IntervalMinutes)
	}
	if !cfg.DevMode {
		t.Error("DevMode should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	cfg := &Config{MemberCode: "06471"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
}

func TestInvalidIntervalFallsBackToDefault(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	os.Setenv("NSE_DATA_DIR", filepath.Join(tmpDir, "data"))
	os.Setenv("NSE_DOWNLOAD_DIR", filepath.Join(tmpDir, "downloads"))
	os.Setenv("NSE_INTERVAL_MINUTES", "not-a-number")
	defer clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want 30 (default)", cfg.IntervalMinutes)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/var/data"}
	expected := filepath.Join("/var/data", "nse_datasync.db")
	if cfg.DatabasePath() != expected {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), expected)
	}
}

func TestLoadCreatesDirectories(t *testing.T) {
	clearEnv(t)

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "nested", "data")
	downloadDir := filepath.Join(tmpDir, "nested", "downloads")

	os.Setenv("NSE_DATA_DIR", dataDir)
	os.Setenv("NSE_DOWNLOAD_DIR", downloadDir)
	defer clearEnv(t)

	if _, err := Load(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Error("data directory was not created")
	}
	if _, err := os.Stat(downloadDir); os.IsNotExist(err) {
		t.Error("download directory was not created")
	}
}
