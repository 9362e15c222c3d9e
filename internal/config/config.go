// Package config loads runtime settings from the environment, layered
// over an optional YAML file named by ORGBRIDGE_CONFIG.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Org sources
	OrgDir    string
	CacheDir  string
	IndexPath string
	Schema    string

	// Emacs bridge command line
	EmacsCmd []string

	// Auth; empty disables bearer auth
	APIKey string

	// Workers for parallel select and cache sync
	QueryWorkers int

	// Upload limits
	MaxUploadBytes int64

	// PDF
	PDFFallbackPdftotext bool
}

// fileConfig mirrors Config in the optional YAML file. Environment
// variables override file values.
type fileConfig struct {
	Port           string `yaml:"port"`
	OrgDir         string `yaml:"org_dir"`
	CacheDir       string `yaml:"cache_dir"`
	IndexPath      string `yaml:"index_path"`
	Schema         string `yaml:"schema"`
	Emacs          string `yaml:"emacs"`
	APIKey         string `yaml:"api_key"`
	QueryWorkers   int    `yaml:"query_workers"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	PDFFallback    *bool  `yaml:"pdf_fallback_pdftotext"`
}

func Load() (Config, error) {
	cfg := Config{
		Port:                 "8765",
		QueryWorkers:         4,
		MaxUploadBytes:       52428800, // 50MB
		PDFFallbackPdftotext: true,
	}
	emacs := "emacsclient"

	if path := os.Getenv("ORGBRIDGE_CONFIG"); path != "" {
		var file fileConfig
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if file.Port != "" {
			cfg.Port = file.Port
		}
		if file.OrgDir != "" {
			cfg.OrgDir = file.OrgDir
		}
		if file.CacheDir != "" {
			cfg.CacheDir = file.CacheDir
		}
		if file.IndexPath != "" {
			cfg.IndexPath = file.IndexPath
		}
		if file.Schema != "" {
			cfg.Schema = file.Schema
		}
		if file.Emacs != "" {
			emacs = file.Emacs
		}
		if file.APIKey != "" {
			cfg.APIKey = file.APIKey
		}
		if file.QueryWorkers > 0 {
			cfg.QueryWorkers = file.QueryWorkers
		}
		if file.MaxUploadBytes > 0 {
			cfg.MaxUploadBytes = file.MaxUploadBytes
		}
		if file.PDFFallback != nil {
			cfg.PDFFallbackPdftotext = *file.PDFFallback
		}
	}

	cfg.Port = envOr("ORGBRIDGE_PORT", cfg.Port)
	cfg.OrgDir = envOr("ORGBRIDGE_ORG_DIR", cfg.OrgDir)
	cfg.CacheDir = envOr("ORGBRIDGE_CACHE_DIR", cfg.CacheDir)
	cfg.IndexPath = envOr("ORGBRIDGE_INDEX_PATH", cfg.IndexPath)
	cfg.Schema = envOr("ORGBRIDGE_SCHEMA", cfg.Schema)
	cfg.APIKey = envOr("ORGBRIDGE_API_KEY", cfg.APIKey)
	cfg.QueryWorkers = envInt("ORGBRIDGE_QUERY_WORKERS", cfg.QueryWorkers)
	cfg.MaxUploadBytes = envInt64("ORGBRIDGE_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.PDFFallbackPdftotext = envBool("ORGBRIDGE_PDF_FALLBACK", cfg.PDFFallbackPdftotext)
	cfg.EmacsCmd = strings.Fields(envOr("ORGBRIDGE_EMACS", emacs))

	if cfg.CacheDir == "" {
		cfg.CacheDir = defaultCacheDir()
	}
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.CacheDir, "index.db")
	}
	if cfg.QueryWorkers <= 0 {
		cfg.QueryWorkers = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.OrgDir == "" {
		return fmt.Errorf("ORGBRIDGE_ORG_DIR is required")
	}
	info, err := os.Stat(c.OrgDir)
	if err != nil {
		return fmt.Errorf("org directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("org directory %s is not a directory", c.OrgDir)
	}
	return nil
}

func defaultCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "orgbridge")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
