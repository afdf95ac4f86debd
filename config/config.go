package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MemberCode string
	LoginID    string
	Password   string
	SecretKey  string

	VaultPassphrase string

	BaseURL     string
	DownloadDir string
	DataDir     string
	DBDriver    string
	DBDSN       string

	Segments        []string
	IntervalMinutes int
	ListTimeout     time.Duration
	DownloadTimeout time.Duration
	DownloadDelay   time.Duration
	DevMode         bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first without overriding already-set variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		MemberCode:      os.Getenv("NSE_MEMBER_CODE"),
		LoginID:         os.Getenv("NSE_LOGIN_ID"),
		Password:        os.Getenv("NSE_PASSWORD"),
		SecretKey:       os.Getenv("NSE_SECRET_KEY"),
		VaultPassphrase: os.Getenv("NSE_VAULT_PASSPHRASE"),
		BaseURL:         getEnvOrDefault("NSE_BASE_URL", "https://www.connect2nse.com/extranet-api"),
		DownloadDir:     os.Getenv("NSE_DOWNLOAD_DIR"),
		DataDir:         getEnvOrDefault("NSE_DATA_DIR", "./data"),
		DBDriver:        getEnvOrDefault("NSE_DB_DRIVER", "sqlite"),
		DBDSN:           os.Getenv("NSE_DB_DSN"),
		IntervalMinutes: getEnvIntOrDefault("NSE_INTERVAL_MINUTES", 30),
		ListTimeout:     time.Duration(getEnvIntOrDefault("NSE_LIST_TIMEOUT", 30)) * time.Second,
		DownloadTimeout: time.Duration(getEnvIntOrDefault("NSE_DOWNLOAD_TIMEOUT", 300)) * time.Second,
		DownloadDelay:   time.Duration(getEnvIntOrDefault("NSE_DOWNLOAD_DELAY_MS", 500)) * time.Millisecond,
		DevMode:         os.Getenv("NSE_DEV_MODE") == "true",
	}

	cfg.Segments = ParseSegments(getEnvOrDefault("NSE_SEGMENTS", "CM,FO,SLB"))

	if cfg.DownloadDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.DownloadDir = filepath.Join(home, "Downloads", "NSE_DataSync_Pro")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := os.MkdirAll(cfg.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}

	return cfg, nil
}

// Validate checks that the credential set required to talk to the extranet is
// complete. Credentials may also come from the encrypted store, so Load itself
// does not enforce this.
func (c *Config) Validate() error {
	var missing []string
	if c.MemberCode == "" {
		missing = append(missing, "NSE_MEMBER_CODE")
	}
	if c.LoginID == "" {
		missing = append(missing, "NSE_LOGIN_ID")
	}
	if c.Password == "" {
		missing = append(missing, "NSE_PASSWORD")
	}
	if c.SecretKey == "" {
		missing = append(missing, "NSE_SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "nse_datasync.db")
}

// ParseSegments normalizes a comma-separated segment list: trimmed,
// uppercased, empty entries dropped.
func ParseSegments(s string) []string {
	parts := strings.Split(s, ",")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, strings.ToUpper(p))
		}
	}
	return segments
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
