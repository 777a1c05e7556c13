// Package config loads host configuration from the environment, after
// reading any .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/jackfish212/assetfs/types"
)

// Prefix is prepended to every environment key, e.g. ASSETFS_SERVER_PORT.
const Prefix = "ASSETFS"

// Config holds all host configuration.
type Config struct {
	Filesystem       string   `envconfig:"FILESYSTEM" default:"virtual"`
	AllowPersistence bool     `envconfig:"ALLOW_PERSISTENCE" default:"true"`
	DataDir          string   `envconfig:"DATA_DIR" default:".assetfs"`
	LocalEnabled     bool     `envconfig:"LOCAL_ENABLED" default:"true"`
	MultipleDrop     bool     `envconfig:"MULTIPLE_DROP" default:"false"`
	BlobPrefix       string   `envconfig:"BLOB_PREFIX" default:"/blob"`
	AssetIgnore      []string `envconfig:"ASSET_IGNORE" default:".git/**,node_modules/**"`
	Sniff            bool     `envconfig:"SNIFF" default:"false"`
	Watch            bool     `envconfig:"WATCH" default:"false"`
	Server           ServerConfig
	Log              LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"127.0.0.1"`
	Port string `envconfig:"PORT" default:"8080"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEV" default:"false"`
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing .env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if _, err := types.ParseFilesystemKind(c.Filesystem); err != nil {
		return err
	}
	if c.AllowPersistence && c.DataDir == "" {
		return fmt.Errorf("%w: persistence needs a data directory", types.ErrInvalidInput)
	}
	return nil
}

// FilesystemKind returns the configured filesystem type.
func (c *Config) FilesystemKind() types.FilesystemKind {
	return types.FilesystemKind(c.Filesystem)
}

// VirtualStorePath is the SQLite file backing the durable virtual store, or
// "" when persistence is off.
func (c *Config) VirtualStorePath() string {
	if !c.AllowPersistence {
		return ""
	}
	return filepath.Join(c.DataDir, "virtual.db")
}

// HandleStorePath is the SQLite file remembering granted handles, or "" when
// persistence is off.
func (c *Config) HandleStorePath() string {
	if !c.AllowPersistence {
		return ""
	}
	return filepath.Join(c.DataDir, "handles.db")
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
