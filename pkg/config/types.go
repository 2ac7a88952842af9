package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Storage    StorageConfig    `toml:"storage"`
	Embedding  EmbeddingConfig  `toml:"embedding"`
	Summarizer SummarizerConfig `toml:"summarizer"`
	Memory     MemoryConfig     `toml:"memory"`
}

// StorageConfig holds the semantic store settings shared by every session.
type StorageConfig struct {
	// Provider selects the semantic store driver: "sqlite" or "postgres".
	Provider string `toml:"provider,omitempty"`

	// DataDir is where per-session state lives: recent buffer JSON files
	// and, for the sqlite provider, the per-session databases.
	// Defaults to the resolved .engram/ directory.
	DataDir string `toml:"data_dir,omitempty"`

	// PostgresDSN is the connection string for the postgres provider.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// SummarizerConfig holds the consolidation model settings.
type SummarizerConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// MemoryConfig holds memory layer tuning.
type MemoryConfig struct {
	RecentCapacity     int     `toml:"recent_capacity,omitempty"`
	RecentThreshold    int     `toml:"recent_threshold,omitempty"`
	SummarizeLength    int     `toml:"summarize_length,omitempty"`
	CleanIntervalDays  int     `toml:"clean_interval_days,omitempty"`
	EvictMaxAgeDays    float64 `toml:"evict_max_age_days,omitempty"`
	EvictMinImportance float64 `toml:"evict_min_importance,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func intKey(get func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.Itoa(*get(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value %q: %w", v, err)
			}
			*get(c) = n
			return nil
		},
	}
}

func floatKey(get func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *get(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*get(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid numeric value %q: %w", v, err)
			}
			*get(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.data_dir": {
		get: func(c *Config) string { return c.Storage.DataDir },
		set: func(c *Config, v string) error { c.Storage.DataDir = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"summarizer.provider": {
		get: func(c *Config) string { return c.Summarizer.Provider },
		set: func(c *Config, v string) error { c.Summarizer.Provider = v; return nil },
	},
	"summarizer.target": {
		get: func(c *Config) string { return c.Summarizer.Target },
		set: func(c *Config, v string) error { c.Summarizer.Target = v; return nil },
	},
	"summarizer.model": {
		get: func(c *Config) string { return c.Summarizer.Model },
		set: func(c *Config, v string) error { c.Summarizer.Model = v; return nil },
	},
	"memory.recent_capacity":     intKey(func(c *Config) *int { return &c.Memory.RecentCapacity }),
	"memory.recent_threshold":    intKey(func(c *Config) *int { return &c.Memory.RecentThreshold }),
	"memory.summarize_length":    intKey(func(c *Config) *int { return &c.Memory.SummarizeLength }),
	"memory.clean_interval_days": intKey(func(c *Config) *int { return &c.Memory.CleanIntervalDays }),
	"memory.evict_max_age_days":  floatKey(func(c *Config) *float64 { return &c.Memory.EvictMaxAgeDays }),
	"memory.evict_min_importance": floatKey(func(c *Config) *float64 {
		return &c.Memory.EvictMinImportance
	}),
}
