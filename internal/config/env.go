package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// maxEnvSearchDepth bounds the upward .env search
const maxEnvSearchDepth = 5

// findEnvFile looks for .env in start and its parents. The search stops at
// the first directory holding a .git entry, so a checkout never picks up
// an unrelated parent's secrets.
func findEnvFile(start string) (string, bool) {
	dir := start
	for i := 0; i < maxEnvSearchDepth; i++ {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", false
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// envInt ignores values that do not parse
func envInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// envDuration accepts "30s" style values and bare seconds
func envDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
