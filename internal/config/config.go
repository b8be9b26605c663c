package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Bind      string
	Port      int
	StoreURI  string
	Key       string
	GroupBy   string // "timings" or "file"
	SingleRun bool

	// Client/worker settings
	ServerURI     string
	RunID         string
	WorkerID      string
	WorkerCommand string
	Timeout       time.Duration

	// Discovery settings
	TestPath       string
	TestFileSuffix string
	PathsToIgnore  []string

	// Output settings
	OutputDir string

	// Run-time history store; empty means a file store under the OS temp dir
	HistoryURI string

	FilePoolSize int
	Verbose      bool

	// Command flags
	Flags Flags
}

// Flags holds command-line flags
type Flags struct {
	Port          int
	Bind          string
	StoreURI      string
	Key           string
	GroupBy       string
	SingleRun     bool
	ServerURI     string
	RunID         string
	WorkerID      string
	WorkerCommand string
	TestPath      string
	NameFilter    string
	MaxRetries    int
	Timeout       int
	OutputDir     string
	Interactive   bool
	Verbose       bool
}

// New creates a new Config with defaults, applying PARWRK_* environment
// variables on top. A .env file in the working directory is loaded first if
// present (missing files are fine).
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Bind:           envOr("PARWRK_BIND", DefaultBind),
		Port:           envIntOr("PARWRK_PORT", DefaultPort),
		StoreURI:       envOr("PARWRK_STORE_URI", DefaultStoreURI),
		Key:            os.Getenv("PARWRK_KEY"),
		GroupBy:        envOr("PARWRK_GROUP_BY", DefaultGroupBy),
		ServerURI:      envOr("PARWRK_SRV_URI", DefaultServerURI),
		RunID:          envOr("PARWRK_RUN", "main"),
		WorkerID:       envOr("PARWRK_ID", defaultWorkerID()),
		WorkerCommand:  os.Getenv("PARWRK_COMMAND"),
		Timeout:        time.Duration(envIntOr("PARWRK_TIMEOUT", DefaultTimeoutSeconds)) * time.Second,
		TestPath:       envOr("PARWRK_TEST_PATH", "."),
		TestFileSuffix: envOr("PARWRK_TEST_SUFFIX", DefaultTestFileSuffix),
		OutputDir:      envOr("PARWRK_OUT", DefaultOutputDir),
		HistoryURI:     os.Getenv("PARWRK_HISTORY_URI"),
		FilePoolSize:   envIntOr("PARWRK_FILE_POOL", DefaultFilePoolSize),
	}
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// ApplyFlags overlays parsed command-line flags onto the config.
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags

	if flags.Port > 0 {
		c.Port = flags.Port
	}
	if flags.Bind != "" {
		c.Bind = flags.Bind
	}
	if flags.StoreURI != "" {
		c.StoreURI = flags.StoreURI
	}
	if flags.Key != "" {
		c.Key = flags.Key
	}
	if flags.GroupBy != "" {
		c.GroupBy = flags.GroupBy
	}
	if flags.SingleRun {
		c.SingleRun = true
	}
	if flags.ServerURI != "" {
		c.ServerURI = flags.ServerURI
	}
	if flags.RunID != "" {
		c.RunID = flags.RunID
	}
	if flags.WorkerID != "" {
		c.WorkerID = flags.WorkerID
	}
	if flags.WorkerCommand != "" {
		c.WorkerCommand = flags.WorkerCommand
	}
	if flags.TestPath != "" {
		c.TestPath = flags.TestPath
	}
	if flags.Timeout > 0 {
		c.Timeout = time.Duration(flags.Timeout) * time.Second
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Verbose {
		c.Verbose = true
	}
}

// HistoryStoreURI returns the URI of the cross-run run-time history store.
// When unset it defaults to a file store under the OS temp dir so history
// survives server restarts even with a memory queue store.
func (c *Config) HistoryStoreURI() string {
	if c.HistoryURI != "" {
		return c.HistoryURI
	}
	return "file://" + filepath.Join(os.TempDir(), "parwrk")
}

// ReportPath returns the path of the saved report for a run.
func (c *Config) ReportPath(runID string) string {
	return filepath.Join(c.OutputDir, runID, "report.json")
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return uuid.NewString()
	}
	return host + "-" + uuid.NewString()[:8]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
