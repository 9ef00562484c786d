package treesitter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

var (
	// ErrUnsupportedLanguage is returned for extensions with no grammar
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed is returned when the syntax tree contains error nodes
	ErrParseFailed = errors.New("source contains syntax errors")
)

// Language identifiers returned by DetectLanguage
const (
	LangPython     = "python"
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

var extensionLanguages = map[string]string{
	".py":  LangPython,
	".pyi": LangPython,
	".pyw": LangPython,
	".js":  LangJavaScript,
	".jsx": LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// DetectLanguage returns language identifier from file extension
func DetectLanguage(filePath string) string {
	return extensionLanguages[strings.ToLower(filepath.Ext(filePath))]
}

func grammarFor(lang string) *sitter.Language {
	switch lang {
	case LangPython:
		return python.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	}
	return nil
}

// LanguageParser wraps a tree-sitter parser with a language grammar.
// Not safe for concurrent use; create one per goroutine.
type LanguageParser struct {
	parser   *sitter.Parser
	langName string
}

// NewLanguageParser creates a parser for the specified language
func NewLanguageParser(lang string) (*LanguageParser, error) {
	grammar := grammarFor(lang)
	if grammar == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)

	return &LanguageParser{
		parser:   parser,
		langName: lang,
	}, nil
}

// Close releases parser resources
func (lp *LanguageParser) Close() {
	if lp.parser != nil {
		lp.parser.Close()
		lp.parser = nil
	}
}

// Parse parses source code and returns the syntax tree.
// Caller must call tree.Close() when done.
func (lp *LanguageParser) Parse(ctx context.Context, code []byte) (*sitter.Tree, error) {
	tree, err := lp.parser.ParseCtx(ctx, nil, code)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("tree-sitter returned no tree")
	}
	return tree, nil
}
