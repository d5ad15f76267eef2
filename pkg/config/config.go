// Package config handles kvgraph configuration via YAML or TOML files and
// environment variables.
//
// Configuration Precedence (highest to lowest):
//  1. Command-line flags (--data-dir, --in-memory, etc.)
//  2. Environment variables (KVGRAPH_*)
//  3. Config file (kvgraph.yaml or kvgraph.toml)
//  4. Built-in defaults
//
// Example Usage:
//
//	cfg, err := config.LoadFromFile(config.FindConfigFile())
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	fmt.Printf("Data dir: %s\n", cfg.Database.DataDir)
//
// Environment Variables (all use KVGRAPH_ prefix):
//
// Database:
//   - KVGRAPH_DATA_DIR="./data"
//   - KVGRAPH_IN_MEMORY=false
//   - KVGRAPH_SYNC_WRITES=false
//   - KVGRAPH_LOW_MEMORY=false
//   - KVGRAPH_HIGH_PERFORMANCE=false
//   - KVGRAPH_ENCRYPTION_ENABLED=false
//   - KVGRAPH_ENCRYPTION_PASSWORD=""
//   - KVGRAPH_SEQUENCE_BANDWIDTH=1000
//   - KVGRAPH_SCAN_PAGE_SIZE=256
//   - KVGRAPH_COMPRESSION_THRESHOLD="1KB"
//
// Logging:
//   - KVGRAPH_LOG_LEVEL="INFO"
//   - KVGRAPH_LOG_FILE="" (stderr when empty)
//   - KVGRAPH_LOG_MAX_SIZE_MB=100
//   - KVGRAPH_LOG_MAX_BACKUPS=5
//   - KVGRAPH_LOG_MAX_AGE_DAYS=30
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config holds all kvgraph configuration.
//
// Configuration is organized into logical sections:
//   - Database: storage engine and graph settings
//   - Logging: log level and rotation
//
// Example:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	// DataDir is the directory for data storage
	DataDir string
	// InMemory keeps everything in RAM; nothing is written to DataDir
	InMemory bool
	// SyncWrites forces an fsync after every write
	SyncWrites bool
	// LowMemory shrinks badger buffers and caches
	LowMemory bool
	// HighPerformance enlarges badger buffers and caches
	HighPerformance bool

	// EncryptionEnabled controls whether data is encrypted at rest
	// Env: KVGRAPH_ENCRYPTION_ENABLED
	EncryptionEnabled bool

	// EncryptionPassword is the passphrase the AES key is derived from.
	// Required when EncryptionEnabled is true.
	// Env: KVGRAPH_ENCRYPTION_PASSWORD
	EncryptionPassword string

	// SequenceBandwidth is how many ids are leased from disk at once
	SequenceBandwidth uint64
	// ScanPageSize is the number of entries a lazy iterator reads per transaction
	ScanPageSize int
	// CompressionThreshold is the encoded property size (bytes) above which values
	// are snappy-compressed; negative disables compression
	CompressionThreshold int
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (DEBUG, INFO, WARN, ERROR)
	Level string
	// File is the log file path; empty logs to stderr
	File string
	// MaxSizeMB is the size at which the log file is rotated
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept
	MaxBackups int
	// MaxAgeDays is how long rotated files are kept
	MaxAgeDays int
}

// fileConfig represents the config file structure for both YAML and TOML.
type fileConfig struct {
	Database struct {
		DataDir              string `yaml:"data_dir" toml:"data_dir"`
		InMemory             bool   `yaml:"in_memory" toml:"in_memory"`
		SyncWrites           bool   `yaml:"sync_writes" toml:"sync_writes"`
		LowMemory            bool   `yaml:"low_memory" toml:"low_memory"`
		HighPerformance      bool   `yaml:"high_performance" toml:"high_performance"`
		EncryptionEnabled    bool   `yaml:"encryption_enabled" toml:"encryption_enabled"`
		EncryptionPassword   string `yaml:"encryption_password" toml:"encryption_password"`
		SequenceBandwidth    uint64 `yaml:"sequence_bandwidth" toml:"sequence_bandwidth"`
		ScanPageSize         int    `yaml:"scan_page_size" toml:"scan_page_size"`
		CompressionThreshold string `yaml:"compression_threshold" toml:"compression_threshold"`
	} `yaml:"database" toml:"database"`

	// Storage alias for database
	Storage struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"storage" toml:"storage"`

	Logging struct {
		Level      string `yaml:"level" toml:"level"`
		File       string `yaml:"file" toml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
	} `yaml:"logging" toml:"logging"`
}

// LoadDefaults returns a Config with built-in defaults.
func LoadDefaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			DataDir:              "./data",
			SequenceBandwidth:    1000,
			ScanPageSize:         256,
			CompressionThreshold: 1024,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadFromEnv returns defaults overridden by KVGRAPH_* environment variables.
func LoadFromEnv() *Config {
	config := LoadDefaults()
	applyEnvVars(config)
	return config
}

// LoadFromFile loads defaults, then the config file at configPath (YAML, or TOML
// when the name ends in .toml), then environment variables. A missing file is not
// an error.
func LoadFromFile(configPath string) (*Config, error) {
	config := LoadDefaults()
	if configPath == "" {
		applyEnvVars(config)
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvVars(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg fileConfig
	if strings.EqualFold(filepath.Ext(configPath), ".toml") {
		if _, err := toml.Decode(string(data), &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyFileConfig(config, &fileCfg); err != nil {
		return nil, err
	}
	applyEnvVars(config)
	return config, nil
}

func applyFileConfig(config *Config, f *fileConfig) error {
	// === Database Settings ===
	if f.Storage.Path != "" {
		config.Database.DataDir = f.Storage.Path
	}
	if f.Database.DataDir != "" {
		config.Database.DataDir = f.Database.DataDir
	}
	if f.Database.InMemory {
		config.Database.InMemory = true
	}
	if f.Database.SyncWrites {
		config.Database.SyncWrites = true
	}
	if f.Database.LowMemory {
		config.Database.LowMemory = true
	}
	if f.Database.HighPerformance {
		config.Database.HighPerformance = true
	}
	if f.Database.EncryptionEnabled {
		config.Database.EncryptionEnabled = true
	}
	if f.Database.EncryptionPassword != "" {
		config.Database.EncryptionPassword = f.Database.EncryptionPassword
	}
	if f.Database.SequenceBandwidth > 0 {
		config.Database.SequenceBandwidth = f.Database.SequenceBandwidth
	}
	if f.Database.ScanPageSize > 0 {
		config.Database.ScanPageSize = f.Database.ScanPageSize
	}
	if f.Database.CompressionThreshold != "" {
		n, err := parseSize(f.Database.CompressionThreshold)
		if err != nil {
			return fmt.Errorf("invalid compression_threshold: %w", err)
		}
		config.Database.CompressionThreshold = n
	}

	// === Logging Settings ===
	if f.Logging.Level != "" {
		config.Logging.Level = f.Logging.Level
	}
	if f.Logging.File != "" {
		config.Logging.File = f.Logging.File
	}
	if f.Logging.MaxSizeMB > 0 {
		config.Logging.MaxSizeMB = f.Logging.MaxSizeMB
	}
	if f.Logging.MaxBackups > 0 {
		config.Logging.MaxBackups = f.Logging.MaxBackups
	}
	if f.Logging.MaxAgeDays > 0 {
		config.Logging.MaxAgeDays = f.Logging.MaxAgeDays
	}
	return nil
}

func applyEnvVars(config *Config) {
	db := &config.Database
	db.DataDir = getEnv("KVGRAPH_DATA_DIR", db.DataDir)
	db.InMemory = getEnvBool("KVGRAPH_IN_MEMORY", db.InMemory)
	db.SyncWrites = getEnvBool("KVGRAPH_SYNC_WRITES", db.SyncWrites)
	db.LowMemory = getEnvBool("KVGRAPH_LOW_MEMORY", db.LowMemory)
	db.HighPerformance = getEnvBool("KVGRAPH_HIGH_PERFORMANCE", db.HighPerformance)
	db.EncryptionEnabled = getEnvBool("KVGRAPH_ENCRYPTION_ENABLED", db.EncryptionEnabled)
	db.EncryptionPassword = getEnv("KVGRAPH_ENCRYPTION_PASSWORD", db.EncryptionPassword)
	db.SequenceBandwidth = uint64(getEnvInt("KVGRAPH_SEQUENCE_BANDWIDTH", int(db.SequenceBandwidth)))
	db.ScanPageSize = getEnvInt("KVGRAPH_SCAN_PAGE_SIZE", db.ScanPageSize)
	if val := os.Getenv("KVGRAPH_COMPRESSION_THRESHOLD"); val != "" {
		if n, err := parseSize(val); err == nil {
			db.CompressionThreshold = n
		}
	}

	lg := &config.Logging
	lg.Level = getEnv("KVGRAPH_LOG_LEVEL", lg.Level)
	lg.File = getEnv("KVGRAPH_LOG_FILE", lg.File)
	lg.MaxSizeMB = getEnvInt("KVGRAPH_LOG_MAX_SIZE_MB", lg.MaxSizeMB)
	lg.MaxBackups = getEnvInt("KVGRAPH_LOG_MAX_BACKUPS", lg.MaxBackups)
	lg.MaxAgeDays = getEnvInt("KVGRAPH_LOG_MAX_AGE_DAYS", lg.MaxAgeDays)
}

// Validate checks the configuration for invalid combinations.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	if !c.Database.InMemory && c.Database.DataDir == "" {
		return fmt.Errorf("data directory is required unless running in memory")
	}
	if c.Database.LowMemory && c.Database.HighPerformance {
		return fmt.Errorf("low_memory and high_performance are mutually exclusive")
	}
	if c.Database.EncryptionEnabled {
		if c.Database.InMemory {
			return fmt.Errorf("encryption requires an on-disk database")
		}
		if c.Database.EncryptionPassword == "" {
			return fmt.Errorf("encryption enabled but no password provided")
		}
	}
	if c.Database.SequenceBandwidth == 0 {
		return fmt.Errorf("invalid sequence bandwidth: %d", c.Database.SequenceBandwidth)
	}
	if c.Database.ScanPageSize <= 0 {
		return fmt.Errorf("invalid scan page size: %d", c.Database.ScanPageSize)
	}
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	return nil
}

// String returns a representation of the Config that is safe to log: the
// encryption password is never included.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, InMemory: %v, SyncWrites: %v, Encryption: %v, LogLevel: %s}",
		c.Database.DataDir, c.Database.InMemory, c.Database.SyncWrites,
		c.Database.EncryptionEnabled, c.Logging.Level,
	)
}

// FindConfigFile searches for a config file in standard locations.
// Returns the path to the first config file found, or empty string if none found.
// Search order:
//  1. ~/.kvgraph/config.yaml, ~/.kvgraph/config.toml
//  2. Current working directory (kvgraph.yaml, kvgraph.toml)
//  3. ~/.config/kvgraph/config.yaml (XDG)
func FindConfigFile() string {
	var candidates []string

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		candidates = append(candidates,
			filepath.Join(home, ".kvgraph", "config.yaml"),
			filepath.Join(home, ".kvgraph", "config.toml"),
		)
	}

	candidates = append(candidates, "kvgraph.yaml", "kvgraph.toml")

	if homeErr == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "kvgraph", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// parseSize parses "1024", "1KB", "4 MiB" or a negative number of bytes.
func parseSize(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}
