package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rohankatakam/codeimpact/internal/errors"
)

// EnvPrefix scopes environment variables read through viper
const EnvPrefix = "CODEIMPACT"

// Config holds all configuration settings
type Config struct {
	// Codebase analysis
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`

	// Impact propagation policy
	Impact ImpactConfig `yaml:"impact" mapstructure:"impact"`

	// Snapshot storage
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Graph export
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`
}

type AnalysisConfig struct {
	Extensions     []string      `yaml:"extensions" mapstructure:"extensions"`           // empty = every supported language
	IgnoreDirs     []string      `yaml:"ignore_dirs" mapstructure:"ignore_dirs"`         // empty = built-in list
	IgnorePatterns []string      `yaml:"ignore_patterns" mapstructure:"ignore_patterns"` // path.Match globs
	Workers        int           `yaml:"workers" mapstructure:"workers"`
	UnitTimeout    time.Duration `yaml:"unit_timeout" mapstructure:"unit_timeout"`
	CachePath      string        `yaml:"cache_path" mapstructure:"cache_path"` // bbolt unit cache; empty disables
	CloneDir       string        `yaml:"clone_dir" mapstructure:"clone_dir"`
}

type ImpactConfig struct {
	Weights     map[string]float64 `yaml:"weights" mapstructure:"weights"`
	DecayFactor float64            `yaml:"decay_factor" mapstructure:"decay_factor"`
	Threshold   float64            `yaml:"threshold" mapstructure:"threshold"`
	TopK        int                `yaml:"top_k" mapstructure:"top_k"`
	TopPaths    int                `yaml:"top_paths" mapstructure:"top_paths"`
	MaxDepth    int                `yaml:"max_depth" mapstructure:"max_depth"`
	CacheSize   int                `yaml:"cache_size" mapstructure:"cache_size"`
}

type StorageConfig struct {
	Type      string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres", "pgx"
	DSN       string `yaml:"dsn" mapstructure:"dsn"`
	LocalPath string `yaml:"local_path" mapstructure:"local_path"`
}

type Neo4jConfig struct {
	URI       string `yaml:"uri" mapstructure:"uri"`
	User      string `yaml:"user" mapstructure:"user"`
	Password  string `yaml:"password" mapstructure:"password"`
	Database  string `yaml:"database" mapstructure:"database"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"` // 0 = sized by entity count
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Analysis: AnalysisConfig{
			Workers:     8,
			UnitTimeout: 30 * time.Second,
			CachePath:   filepath.Join(homeDir, ".codeimpact", "cache", "units.db"),
			CloneDir:    filepath.Join(homeDir, ".codeimpact", "cache"),
		},
		Impact: ImpactConfig{
			Weights: map[string]float64{
				"extends":    1.0,
				"invokes":    0.9,
				"imports":    0.8,
				"defined_in": 0.5,
			},
			DecayFactor: 0.7,
			Threshold:   0.1,
			TopK:        10,
			TopPaths:    5,
			MaxDepth:    5,
			CacheSize:   1024,
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".codeimpact", "local.db"),
		},
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
	}
}

// Load loads configuration from file. An empty path searches .codeimpact/,
// the working directory and ~/.codeimpact for config.yaml.
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// CODEIMPACT_IMPACT_DECAY_FACTOR -> impact.decay_factor
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".codeimpact")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".codeimpact"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to read config")
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityCritical, "failed to unmarshal config")
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// setDefaults registers every leaf key so AutomaticEnv can see it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("analysis.extensions", cfg.Analysis.Extensions)
	v.SetDefault("analysis.ignore_dirs", cfg.Analysis.IgnoreDirs)
	v.SetDefault("analysis.ignore_patterns", cfg.Analysis.IgnorePatterns)
	v.SetDefault("analysis.workers", cfg.Analysis.Workers)
	v.SetDefault("analysis.unit_timeout", cfg.Analysis.UnitTimeout)
	v.SetDefault("analysis.cache_path", cfg.Analysis.CachePath)
	v.SetDefault("analysis.clone_dir", cfg.Analysis.CloneDir)

	v.SetDefault("impact.weights", cfg.Impact.Weights)
	v.SetDefault("impact.decay_factor", cfg.Impact.DecayFactor)
	v.SetDefault("impact.threshold", cfg.Impact.Threshold)
	v.SetDefault("impact.top_k", cfg.Impact.TopK)
	v.SetDefault("impact.top_paths", cfg.Impact.TopPaths)
	v.SetDefault("impact.max_depth", cfg.Impact.MaxDepth)
	v.SetDefault("impact.cache_size", cfg.Impact.CacheSize)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.dsn", cfg.Storage.DSN)
	v.SetDefault("storage.local_path", cfg.Storage.LocalPath)

	v.SetDefault("neo4j.uri", cfg.Neo4j.URI)
	v.SetDefault("neo4j.user", cfg.Neo4j.User)
	v.SetDefault("neo4j.password", cfg.Neo4j.Password)
	v.SetDefault("neo4j.database", cfg.Neo4j.Database)
	v.SetDefault("neo4j.batch_size", cfg.Neo4j.BatchSize)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	// godotenv.Load never overrides variables that are already set, so
	// earlier files win
	envFiles := []string{
		".env.local",
		".env",
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if envPath, ok := findEnvFile(cwd); ok {
			_ = godotenv.Load(envPath)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".codeimpact", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the conventional, unprefixed variables used by
// docker-compose setups
func applyEnvOverrides(cfg *Config) {
	// Neo4j configuration
	cfg.Neo4j.URI = envString("NEO4J_URI", cfg.Neo4j.URI)
	cfg.Neo4j.User = envString("NEO4J_USER", cfg.Neo4j.User)
	cfg.Neo4j.Password = envString("NEO4J_PASSWORD", cfg.Neo4j.Password)
	cfg.Neo4j.Database = envString("NEO4J_DATABASE", cfg.Neo4j.Database)

	// Storage configuration
	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.DSN = dsn
		if cfg.Storage.Type == "sqlite" {
			cfg.Storage.Type = "postgres"
		}
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	// Analysis configuration
	cfg.Analysis.Workers = envInt("ANALYSIS_WORKERS", cfg.Analysis.Workers)
	cfg.Analysis.UnitTimeout = envDuration("ANALYSIS_UNIT_TIMEOUT", cfg.Analysis.UnitTimeout)
	cfg.Impact.MaxDepth = envInt("IMPACT_MAX_DEPTH", cfg.Impact.MaxDepth)
	if dir := os.Getenv("CACHE_DIRECTORY"); dir != "" {
		dir = expandPath(dir)
		cfg.Analysis.CloneDir = dir
		cfg.Analysis.CachePath = filepath.Join(dir, "units.db")
	}

	cfg.Analysis.CachePath = expandPath(cfg.Analysis.CachePath)
	cfg.Analysis.CloneDir = expandPath(cfg.Analysis.CloneDir)
	cfg.Storage.LocalPath = expandPath(cfg.Storage.LocalPath)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// StorageDSN returns the DSN for the configured store type
func (c *Config) StorageDSN() string {
	if c.Storage.Type == "sqlite" {
		return c.Storage.LocalPath
	}
	return c.Storage.DSN
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("analysis", map[string]interface{}{
		"extensions":      c.Analysis.Extensions,
		"ignore_dirs":     c.Analysis.IgnoreDirs,
		"ignore_patterns": c.Analysis.IgnorePatterns,
		"workers":         c.Analysis.Workers,
		"unit_timeout":    c.Analysis.UnitTimeout.String(),
		"cache_path":      c.Analysis.CachePath,
		"clone_dir":       c.Analysis.CloneDir,
	})
	v.Set("impact", map[string]interface{}{
		"weights":      c.Impact.Weights,
		"decay_factor": c.Impact.DecayFactor,
		"threshold":    c.Impact.Threshold,
		"top_k":        c.Impact.TopK,
		"top_paths":    c.Impact.TopPaths,
		"max_depth":    c.Impact.MaxDepth,
		"cache_size":   c.Impact.CacheSize,
	})
	v.Set("storage", map[string]interface{}{
		"type":       c.Storage.Type,
		"dsn":        c.Storage.DSN,
		"local_path": c.Storage.LocalPath,
	})
	// password is never written to disk
	v.Set("neo4j", map[string]interface{}{
		"uri":        c.Neo4j.URI,
		"user":       c.Neo4j.User,
		"database":   c.Neo4j.Database,
		"batch_size": c.Neo4j.BatchSize,
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.FileSystemError(err, "failed to create config directory")
	}
	if err := v.WriteConfigAs(path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh, "failed to write config")
	}
	return nil
}
