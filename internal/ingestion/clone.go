package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/codeimpact/internal/errors"
)

var remotePrefixes = []string{"https://", "http://", "git@", "ssh://"}

// IsRemoteRoot reports whether target names a git remote rather than a local directory
func IsRemoteRoot(target string) bool {
	for _, prefix := range remotePrefixes {
		if strings.HasPrefix(target, prefix) {
			return true
		}
	}
	return false
}

// PrepareRoot returns an absolute local directory to analyze. Remote targets
// are shallow-cloned into cacheDir/repos/<key> and reused while the clone
// is intact.
func PrepareRoot(ctx context.Context, target, cacheDir string) (string, error) {
	if IsRemoteRoot(target) {
		return cloneShallow(ctx, target, cacheDir)
	}

	abs, err := ResolveRoot(target, cacheDir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.FileSystemError(err, "root not accessible")
	}
	if !info.IsDir() {
		return "", errors.ValidationErrorf("%s is not a directory", abs)
	}
	return abs, nil
}

// ResolveRoot returns the directory PrepareRoot would analyze for target
// without cloning or touching the filesystem. Snapshots are keyed by it.
func ResolveRoot(target, cacheDir string) (string, error) {
	if IsRemoteRoot(target) {
		if cacheDir == "" {
			return "", errors.ConfigErrorf("analysis.clone_dir is required to analyze %s", target)
		}
		return CloneDir(target, cacheDir), nil
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", errors.FileSystemError(err, "invalid root")
	}
	return abs, nil
}

// CloneDir is where a remote is cloned under cacheDir
func CloneDir(url, cacheDir string) string {
	return filepath.Join(cacheDir, "repos", cloneKey(url))
}

func cloneShallow(ctx context.Context, url, cacheDir string) (string, error) {
	dest, err := ResolveRoot(url, cacheDir)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		if hasGitDir(dest) {
			return dest, nil
		}
		// half-written clone from an interrupted run
		if err := os.RemoveAll(dest); err != nil {
			return "", errors.FileSystemError(err, "failed to remove stale clone")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", errors.FileSystemError(err, "failed to create clone directory")
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--single-branch", url, dest)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.RemoveAll(dest)
		return "", errors.ExternalError(err, "git clone failed").
			WithContext("url", url).
			WithContext("output", strings.TrimSpace(string(out)))
	}
	return dest, nil
}

// cloneKey maps equivalent spellings of a remote to one directory
func cloneKey(url string) string {
	url = strings.TrimSuffix(strings.TrimSuffix(url, "/"), ".git")
	sum := sha256.Sum256([]byte(strings.ToLower(url)))
	return hex.EncodeToString(sum[:8])
}

func hasGitDir(path string) bool {
	info, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil && info.IsDir()
}
