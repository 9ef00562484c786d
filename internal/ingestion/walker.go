package ingestion

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

// WalkOptions controls which files the walker yields
type WalkOptions struct {
	// Extensions to keep, e.g. ".py". Empty means every extension with a grammar.
	Extensions []string
	// IgnoreDirs are directory names skipped wherever they appear
	IgnoreDirs []string
	// IgnorePatterns are matched with path.Match against the slash-separated
	// relative path and against the base name
	IgnorePatterns []string
	// IncludeHidden walks directories whose name starts with "."
	IncludeHidden bool
	// IncludeGenerated keeps minified, bundled and generated sources
	IncludeGenerated bool
}

// DefaultIgnoreDirs are build outputs, dependency trees and caches
var DefaultIgnoreDirs = []string{
	"node_modules",
	"vendor",
	"venv",
	"env",
	"__pycache__",
	"dist",
	"build",
	"out",
	"target",
	"coverage",
	"site-packages",
	"__mocks__",
}

// DefaultWalkOptions returns options covering every supported language
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		IgnoreDirs: append([]string(nil), DefaultIgnoreDirs...),
	}
}

// SourceFile is one eligible source unit
type SourceFile struct {
	AbsPath string
	RelPath string // slash-separated, relative to the walk root
}

// FileStats holds statistics about discovered files
type FileStats struct {
	Total            int `json:"total" yaml:"total"`
	Python           int `json:"python" yaml:"python"`
	JavaScript       int `json:"javascript" yaml:"javascript"`
	TypeScript       int `json:"typescript" yaml:"typescript"`
	SkippedGenerated int `json:"skipped_generated" yaml:"skipped_generated"`
	SkippedIgnored   int `json:"skipped_ignored" yaml:"skipped_ignored"`
}

// WalkSourceFiles walks root and returns eligible source files in lexical
// path order. Directories are pruned before descent.
func WalkSourceFiles(ctx context.Context, root string, opts WalkOptions) ([]SourceFile, *FileStats, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, err
	}

	extensions := make(map[string]bool)
	for _, ext := range opts.Extensions {
		extensions[strings.ToLower(ext)] = true
	}
	ignoreDirs := make(map[string]bool)
	for _, dir := range opts.IgnoreDirs {
		ignoreDirs[dir] = true
	}

	stats := &FileStats{}
	var files []SourceFile

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if shouldSkipDir(d.Name(), rel, ignoreDirs, opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		lang := treesitter.DetectLanguage(rel)
		if lang == "" {
			return nil
		}
		if len(extensions) > 0 && !extensions[strings.ToLower(filepath.Ext(rel))] {
			return nil
		}

		stats.Total++
		if matchesAny(rel, opts.IgnorePatterns) {
			stats.SkippedIgnored++
			return nil
		}
		if !opts.IncludeGenerated && isGeneratedFile(rel) {
			stats.SkippedGenerated++
			return nil
		}

		switch lang {
		case treesitter.LangPython:
			stats.Python++
		case treesitter.LangJavaScript:
			stats.JavaScript++
		default:
			stats.TypeScript++
		}
		files = append(files, SourceFile{AbsPath: p, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return files, stats, nil
}

// shouldSkipDir returns true if directory should be excluded from the walk
func shouldSkipDir(name, rel string, ignoreDirs map[string]bool, opts WalkOptions) bool {
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if ignoreDirs[name] {
		return true
	}
	return matchesAny(rel, opts.IgnorePatterns)
}

func matchesAny(rel string, patterns []string) bool {
	base := path.Base(rel)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// isGeneratedFile returns true if file is likely generated
func isGeneratedFile(rel string) bool {
	generatedSuffixes := []string{
		".min.js",       // Minified JS
		".bundle.js",    // Bundled JS
		".generated.ts", // Generated TypeScript
		".generated.js", // Generated JS
		".pb.js",        // Protocol buffers
		".pb.ts",
		"_pb.js",
		"_pb.ts",
		"_pb2.py",
		"_pb2_grpc.py",
		".d.ts", // TypeScript declarations
	}

	for _, suffix := range generatedSuffixes {
		if strings.HasSuffix(rel, suffix) {
			return true
		}
	}
	return false
}
