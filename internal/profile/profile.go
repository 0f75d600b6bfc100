package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Drgblack/timemeaning/server/timezone"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where timemeaning stores shared results
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the instance, used in share links.
	InstanceURL string

	// API access
	APISecret          string  // TIMEMEANING_API_SECRET (HS256 key for API tokens; empty disables auth)
	RateLimitPerMinute float64 // TIMEMEANING_RATE_LIMIT_PER_MINUTE (default: 60)
	RateLimitBurst     int     // TIMEMEANING_RATE_LIMIT_BURST (default: 10)

	// Resolution
	DefaultLocale string // TIMEMEANING_DEFAULT_LOCALE (default: "", never assume a zone)
	BatchWorkers  int    // TIMEMEANING_BATCH_WORKERS (default: GOMAXPROCS)

	// Shares
	ShareTTL      time.Duration // TIMEMEANING_SHARE_TTL (default: 720h)
	RedisAddr     string        // TIMEMEANING_REDIS_ADDR (default: "", L2 cache disabled)
	OGConcurrency int64         // TIMEMEANING_OG_CONCURRENCY (default: 4)
}

// Defaults for the values FromEnv fills in.
const (
	DefaultRateLimitPerMinute = 60
	DefaultRateLimitBurst     = 10
	DefaultShareTTL           = 30 * 24 * time.Hour
	DefaultOGConcurrency      = 4
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAuthEnabled returns true if API tokens are required.
func (p *Profile) IsAuthEnabled() bool {
	return p.APISecret != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv fills the fields that are not bound to flags from TIMEMEANING_*
// environment variables. Values already set are kept.
func (p *Profile) FromEnv() {
	if p.APISecret == "" {
		p.APISecret = os.Getenv("TIMEMEANING_API_SECRET")
	}
	if p.RateLimitPerMinute == 0 {
		p.RateLimitPerMinute = parseFloat(getEnvOrDefault("TIMEMEANING_RATE_LIMIT_PER_MINUTE", ""), DefaultRateLimitPerMinute)
	}
	if p.RateLimitBurst == 0 {
		p.RateLimitBurst = parseInt(getEnvOrDefault("TIMEMEANING_RATE_LIMIT_BURST", ""), DefaultRateLimitBurst)
	}
	if p.DefaultLocale == "" {
		p.DefaultLocale = os.Getenv("TIMEMEANING_DEFAULT_LOCALE")
	}
	if p.BatchWorkers == 0 {
		p.BatchWorkers = parseInt(getEnvOrDefault("TIMEMEANING_BATCH_WORKERS", ""), runtime.GOMAXPROCS(0))
	}
	if p.ShareTTL == 0 {
		p.ShareTTL = DefaultShareTTL
		if raw := os.Getenv("TIMEMEANING_SHARE_TTL"); raw != "" {
			if d, err := time.ParseDuration(raw); err == nil && d > 0 {
				p.ShareTTL = d
			} else {
				slog.Warn("ignoring invalid share ttl", slog.String("value", raw))
			}
		}
	}
	if p.RedisAddr == "" {
		p.RedisAddr = os.Getenv("TIMEMEANING_REDIS_ADDR")
	}
	if p.OGConcurrency == 0 {
		p.OGConcurrency = int64(parseInt(getEnvOrDefault("TIMEMEANING_OG_CONCURRENCY", ""), DefaultOGConcurrency))
	}
}

func parseInt(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid integer setting", slog.String("value", raw))
		return def
	}
	return v
}

func parseFloat(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid number setting", slog.String("value", raw))
		return def
	}
	return v
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q; expected sqlite or postgres", p.Driver)
	}
	if p.DefaultLocale != "" && !timezone.IsValidTimezone(p.DefaultLocale) {
		return errors.Errorf("default locale %q is not an IANA time zone", p.DefaultLocale)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "timemeaning")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/timemeaning"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("timemeaning_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a dsn")
	}

	return nil
}
