package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rohankatakam/codeimpact/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextAnalyze - analyze needs the analysis section and, with --save, storage
	ValidationContextAnalyze ValidationContext = "analyze"
	// ValidationContextImpact - impact needs analysis and a valid propagation policy
	ValidationContextImpact ValidationContext = "impact"
	// ValidationContextExport - export requires Neo4j
	ValidationContextExport ValidationContext = "export"
	// ValidationContextStorage - snapshot commands require a store
	ValidationContextStorage ValidationContext = "storage"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

var knownRelationshipKinds = map[string]bool{
	"extends":    true,
	"invokes":    true,
	"imports":    true,
	"defined_in": true,
}

var storageTypes = map[string]bool{
	"sqlite":   true,
	"postgres": true,
	"pgx":      true,
}

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Err returns the result as a config error, or nil when valid
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigErrorf("%s", vr.Error())
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextAnalyze:
		c.validateAnalysis(result)
	case ValidationContextImpact:
		c.validateAnalysis(result)
		c.validateImpact(result)
	case ValidationContextExport:
		c.validateNeo4j(result, true)
	case ValidationContextStorage:
		c.validateStorage(result)
	case ValidationContextAll:
		c.validateAnalysis(result)
		c.validateImpact(result)
		c.validateStorage(result)
		c.validateNeo4j(result, false)
	}

	return result
}

func (c *Config) validateAnalysis(result *ValidationResult) {
	if c.Analysis.Workers <= 0 {
		result.AddError("analysis.workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.UnitTimeout <= 0 {
		result.AddError("analysis.unit_timeout must be positive, got %s", c.Analysis.UnitTimeout)
	} else if c.Analysis.UnitTimeout < time.Second {
		result.AddWarning("analysis.unit_timeout of %s may abort large files", c.Analysis.UnitTimeout)
	}
	for _, ext := range c.Analysis.Extensions {
		if !strings.HasPrefix(ext, ".") {
			result.AddError("analysis.extensions entry %q must start with a dot", ext)
		}
	}
	if c.Analysis.CachePath == "" {
		result.AddWarning("analysis.cache_path is not set, every unit will be re-parsed")
	}
}

func (c *Config) validateImpact(result *ValidationResult) {
	for kind, w := range c.Impact.Weights {
		if !knownRelationshipKinds[kind] {
			result.AddError("impact.weights has unknown relationship kind %q", kind)
			continue
		}
		if w < 0 || w > 1 {
			result.AddError("impact.weights.%s is out of range [0,1]: %.2f", kind, w)
		}
	}
	if c.Impact.DecayFactor <= 0 || c.Impact.DecayFactor >= 1 {
		result.AddError("impact.decay_factor must be in (0,1), got %.2f", c.Impact.DecayFactor)
	}
	if c.Impact.Threshold < 0 || c.Impact.Threshold >= 1 {
		result.AddError("impact.threshold must be in [0,1), got %.2f", c.Impact.Threshold)
	}
	if c.Impact.TopK < 0 {
		result.AddError("impact.top_k must not be negative, got %d", c.Impact.TopK)
	}
	if c.Impact.TopPaths < 0 {
		result.AddError("impact.top_paths must not be negative, got %d", c.Impact.TopPaths)
	}
	if c.Impact.MaxDepth < 0 {
		result.AddError("impact.max_depth must not be negative, got %d", c.Impact.MaxDepth)
	}
	if c.Impact.CacheSize <= 0 {
		result.AddWarning("impact.cache_size is not positive, the default will be used")
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	if !storageTypes[c.Storage.Type] {
		result.AddError("storage.type must be sqlite, postgres or pgx, got %q", c.Storage.Type)
		return
	}

	if c.Storage.Type == "sqlite" {
		if c.Storage.LocalPath == "" {
			result.AddError("storage.local_path is required for sqlite")
		}
		return
	}

	if c.Storage.DSN == "" {
		result.AddError("POSTGRES_DSN is required for storage type %s", c.Storage.Type)
		return
	}
	if !strings.HasPrefix(c.Storage.DSN, "postgres://") && !strings.HasPrefix(c.Storage.DSN, "postgresql://") {
		result.AddError("POSTGRES_DSN must start with postgres:// or postgresql://")
	}
	if strings.Contains(c.Storage.DSN, "sslmode=disable") {
		result.AddWarning("PostgreSQL DSN has sslmode=disable")
	}
}

func (c *Config) validateNeo4j(result *ValidationResult, required bool) {
	if c.Neo4j.URI == "" {
		if required {
			result.AddError("NEO4J_URI is required but not set")
		} else {
			result.AddWarning("NEO4J_URI is not set")
		}
	} else if u, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	} else if !strings.HasPrefix(u.Scheme, "bolt") && !strings.HasPrefix(u.Scheme, "neo4j") {
		result.AddError("NEO4J_URI scheme must be bolt or neo4j, got %q", u.Scheme)
	}

	if c.Neo4j.Password == "" {
		if required {
			result.AddError("NEO4J_PASSWORD is required but not set. Set it via environment variable or .env file.")
		} else {
			result.AddWarning("NEO4J_PASSWORD is not set")
		}
	} else if c.Neo4j.Password == "password" || c.Neo4j.Password == "neo4j" {
		result.AddWarning("NEO4J_PASSWORD is set to a very common password (%s)", c.Neo4j.Password)
	}

	if c.Neo4j.Database == "" {
		result.AddWarning("NEO4J_DATABASE is not set, will use 'neo4j' as default")
	}
	if c.Neo4j.BatchSize < 0 {
		result.AddError("neo4j.batch_size must not be negative, got %d", c.Neo4j.BatchSize)
	}
}
