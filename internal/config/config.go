package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	DBPath    string    `toml:"db_path"`
	CtxDir    string    `toml:"ctx_dir"`
	Exclude   Exclude   `toml:"exclude"`
	Sources   Sources   `toml:"sources"`
	Freshness Freshness `toml:"freshness"`
	Debt      Debt      `toml:"debt"`
	Runner    Runner    `toml:"runner"`
	Git       Git       `toml:"git"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Sources struct {
	Extensions []string `toml:"extensions"`
}

type Freshness struct {
	ThresholdDays int `toml:"threshold_days"`
	SevereDays    int `toml:"severe_days"`
}

type Debt struct {
	AgeThresholdDays int `toml:"age_threshold_days"`
}

type Runner struct {
	Timeout time.Duration `toml:"timeout"`
	Workers int           `toml:"workers"`
}

type Git struct {
	// Calls per second allowed against the git CLI, with burst headroom.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for callers
// that run without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.DBPath == "" {
		cfg.DBPath = ".ctx/knowledge.db"
	}
	if cfg.CtxDir == "" {
		cfg.CtxDir = ".ctx"
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{"node_modules", ".git", "vendor", "dist", "build"}
	}
	if len(cfg.Sources.Extensions) == 0 {
		cfg.Sources.Extensions = []string{
			".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rs",
			".java", ".kt", ".c", ".cpp", ".h", ".rb",
			".json", ".yaml", ".yml", ".sh", ".sql",
		}
	}
	if cfg.Freshness.ThresholdDays == 0 {
		cfg.Freshness.ThresholdDays = 30
	}
	if cfg.Freshness.SevereDays == 0 {
		cfg.Freshness.SevereDays = 90
	}
	if cfg.Debt.AgeThresholdDays == 0 {
		cfg.Debt.AgeThresholdDays = 30
	}
	if cfg.Runner.Timeout == 0 {
		cfg.Runner.Timeout = 30 * time.Second
	}
	if cfg.Git.RateLimit == 0 {
		cfg.Git.RateLimit = 50
	}
	if cfg.Git.Burst == 0 {
		cfg.Git.Burst = 10
	}
}
