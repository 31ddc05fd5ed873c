// Package config handles harness.toml project configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/govm-net/harness/chain"
	"github.com/govm-net/harness/security"
	"github.com/govm-net/harness/types"
)

// FileName is the configuration file looked up in a project directory.
const FileName = "harness.toml"

// Config represents a harness.toml file.
type Config struct {
	// Endpoint selects the chain as a URL: "memory:" or "db:path/to.db".
	// When empty the [chain] section applies.
	Endpoint       string          `toml:"endpoint"`
	Seed           string          `toml:"seed"`
	UpgradeAddress types.Address   `toml:"upgrade_address"`
	Project        string          `toml:"project"`
	Chain          Chain           `toml:"chain"`
	Log            Log             `toml:"log"`
	Limits         security.Limits `toml:"limits"`

	// Dir is the directory holding the file (set at load time).
	Dir string `toml:"-"`
}

// Chain configures the simulated chain.
type Chain struct {
	Type           string `toml:"type"`
	DBPath         string `toml:"db_path"`
	DeploymentsDir string `toml:"deployments_dir"`
}

// Log configures the process logger.
type Log struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Project: ".",
		Chain: Chain{
			Type:           string(chain.MemoryType),
			DBPath:         ".harness/chain.db",
			DeploymentsDir: ".harness/contracts",
		},
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Limits: security.DefaultLimits(),
		Dir:    ".",
	}
}

// Load parses dir/harness.toml over the defaults. A missing file yields the
// defaults.
func Load(dir string) (*Config, error) {
	cfg := Default()
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	cfg.Dir = abs

	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	cfg.Limits = cfg.Limits.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// FindAndLoad walks up from startDir to the first harness.toml and loads
// it. Without one the defaults apply, rooted at startDir.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Load(startDir)
		}
		dir = parent
	}
}

// Validate checks the values a file can get wrong.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if _, _, err := c.ChainTarget(); err != nil {
		return err
	}
	return c.Limits.Validate()
}

// Path resolves p against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// SeedBytes decodes the configured seed. It is nil when none is set.
func (c *Config) SeedBytes() []byte {
	if c.Seed == "" {
		return nil
	}
	return chain.ParseSeed(c.Seed)
}

// ChainTarget returns the chain type and the parameters to open it with.
func (c *Config) ChainTarget() (chain.Type, map[string]any, error) {
	typ, dbPath := c.Chain.Type, c.Chain.DBPath
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		if err != nil {
			return "", nil, fmt.Errorf("invalid endpoint %q: %w", c.Endpoint, err)
		}
		typ = u.Scheme
		if p := u.Opaque + u.Host + u.Path; p != "" {
			dbPath = p
		}
	}
	switch chain.Type(typ) {
	case "", chain.MemoryType:
		return chain.MemoryType, map[string]any{}, nil
	case chain.DBType:
		return chain.DBType, map[string]any{"db_path": c.Path(dbPath)}, nil
	}
	return "", nil, fmt.Errorf("unknown chain type %q", typ)
}

// SlogLevel parses the configured level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return level, fmt.Errorf("unknown log level %q", l.Level)
	}
	return level, nil
}
