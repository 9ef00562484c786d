package treesitter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/rohankatakam/codeimpact/internal/models"
)

// UnitResult holds the entities and relationships defined within one
// source unit, in traversal order. Relationship targets other than
// defined_in are still symbolic names.
type UnitResult struct {
	Path          string                `json:"path"`
	Language      string                `json:"language"`
	Hash          string                `json:"hash"`
	Entities      []models.CodeEntity   `json:"entities"`
	Relationships []models.Relationship `json:"relationships"`
}

// ContentHash is the cache key for a unit: path and content together
func ContentHash(path string, code []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(code)
	return hex.EncodeToString(h.Sum(nil))
}

// AnalyzeFile reads a file from disk and analyzes it. relPath is the
// path recorded on entities and used for ids.
func AnalyzeFile(ctx context.Context, absPath, relPath string) (*UnitResult, error) {
	code, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", absPath, err)
	}
	return AnalyzeSource(ctx, relPath, code)
}

// AnalyzeSource parses one source unit and extracts its entities and
// relationships. It has no side effects and needs no knowledge of other units.
func AnalyzeSource(ctx context.Context, path string, code []byte) (*UnitResult, error) {
	lang := DetectLanguage(path)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, path)
	}

	lp, err := NewLanguageParser(lang)
	if err != nil {
		return nil, err
	}
	defer lp.Close()

	tree, err := lp.Parse(ctx, code)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("%w: empty syntax tree", ErrParseFailed)
	}
	if root.HasError() {
		return nil, ErrParseFailed
	}

	sc := newScopeContext(path, lang, code, root)
	switch lang {
	case LangPython:
		walkPython(sc, root)
	default:
		walkJavaScript(sc, root)
	}

	return sc.result(ContentHash(path, code)), nil
}

// walkChildren visits every child with the given visitor
func walkChildren(sc *scopeContext, node *sitter.Node, visit func(*scopeContext, *sitter.Node)) {
	for _, child := range children(node) {
		visit(sc, child)
	}
}
