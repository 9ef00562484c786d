package ingestion

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/errors"
	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

type memoryUnitCache struct {
	mu    sync.Mutex
	units map[string]*treesitter.UnitResult
	puts  int
}

func newMemoryUnitCache() *memoryUnitCache {
	return &memoryUnitCache{units: make(map[string]*treesitter.UnitResult)}
}

func (c *memoryUnitCache) Get(hash string) (*treesitter.UnitResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	res, ok := c.units[hash]
	return res, ok, nil
}

func (c *memoryUnitCache) Put(result *treesitter.UnitResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.units[result.Hash] = result
	c.puts++
	return nil
}

func sampleTree(t *testing.T) string {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"core/models.py":    "class Model:\n    def save(self):\n        self.validate()\n\n    def validate(self):\n        pass\n",
		"core/service.py":   "from core.models import Model\n\ndef create():\n    m = Model()\n    m.save()\n",
		"broken.py":         "def broken(:\n",
		"web/app.js":        "import { create } from '../core/service';\nfunction handler() {\n  create();\n}\n",
		"node_modules/x.js": "function ignored() {}\n",
	})
	return root
}

func TestAnalyzeCodebase(t *testing.T) {
	root := sampleTree(t)
	analyzer := NewAnalyzer(&AnalyzerConfig{Workers: 4, Walk: DefaultWalkOptions()}, nil, nil)

	result, err := analyzer.AnalyzeCodebase(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.UnitsParsed)
	assert.Equal(t, 1, result.Stats.UnitsFailed)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "broken.py", result.Diagnostics[0].Path)
	assert.True(t, errors.IsType(result.Diagnostics[0].Err, errors.ErrorTypeParse))
	assert.ErrorIs(t, result.Diagnostics[0].Err, treesitter.ErrParseFailed)

	assert.Equal(t, 3, result.Stats.ByKind[models.KindSourceUnit])
	assert.Equal(t, 1, result.Stats.ByKind[models.KindTypeDefinition])
	assert.Equal(t, 2, result.Stats.ByKind[models.KindMethod])
	assert.Equal(t, 2, result.Stats.ByKind[models.KindCallable])

	// units merged in path order regardless of worker scheduling
	var units []string
	for _, e := range result.Entities {
		if e.Kind == models.KindSourceUnit {
			units = append(units, e.FilePath)
		}
	}
	assert.Equal(t, []string{"core/models.py", "core/service.py", "web/app.js"}, units)

	byName := make(map[string]models.CodeEntity)
	for _, e := range result.Entities {
		byName[e.QualifiedName] = e
	}
	create := byName["core/service.py::create"]
	handler := byName["web/app.js::handler"]
	model := byName["core/models.py::Model"]
	validate := byName["core/models.py::Model.validate"]
	save := byName["core/models.py::Model.save"]

	assert.Equal(t, []string{model.ID, "m.save"}, targetsOf(result.Relationships, create.ID, models.RelInvokes))
	assert.Equal(t, []string{create.ID}, targetsOf(result.Relationships, handler.ID, models.RelInvokes))
	assert.Equal(t, []string{validate.ID}, targetsOf(result.Relationships, save.ID, models.RelInvokes))
}

func TestAnalyzeCodebase_Deterministic(t *testing.T) {
	root := sampleTree(t)

	first, err := NewAnalyzer(&AnalyzerConfig{Workers: 1}, nil, nil).AnalyzeCodebase(context.Background(), root)
	require.NoError(t, err)
	second, err := NewAnalyzer(&AnalyzerConfig{Workers: 8}, nil, nil).AnalyzeCodebase(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first.Entities, second.Entities)
	assert.Equal(t, first.Relationships, second.Relationships)
}

func TestAnalyzeCodebase_UsesUnitCache(t *testing.T) {
	root := sampleTree(t)
	cache := newMemoryUnitCache()
	analyzer := NewAnalyzer(&AnalyzerConfig{Workers: 2, Walk: DefaultWalkOptions()}, cache, nil)

	first, err := analyzer.AnalyzeCodebase(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Stats.CacheHits)
	assert.Equal(t, 3, cache.puts)

	second, err := analyzer.AnalyzeCodebase(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, second.Stats.CacheHits)
	assert.Equal(t, 3, cache.puts)
	assert.Equal(t, len(first.Entities), len(second.Entities))
}

func TestAnalyzeCodebase_Cancelled(t *testing.T) {
	root := sampleTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalyzer(nil, nil, nil).AnalyzeCodebase(ctx, root)
	assert.Error(t, err)
}
