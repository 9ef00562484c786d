package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/models"
	"github.com/rohankatakam/codeimpact/internal/treesitter"
)

func openTemp(t *testing.T) (*BoltUnitCache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "units.db")
	c, err := Open(path, nil)
	require.NoError(t, err)
	return c, path
}

func sampleUnit() *treesitter.UnitResult {
	fn := models.CodeEntity{ID: "f", Kind: models.KindCallable, Name: "run", FilePath: "a.py"}
	fn.SetAttribute(models.AttrParameters, []string{"x", "y"})
	return &treesitter.UnitResult{
		Path:     "a.py",
		Language: "python",
		Hash:     treesitter.ContentHash("a.py", []byte("def run(x, y): pass")),
		Entities: []models.CodeEntity{
			{ID: "u", Kind: models.KindSourceUnit, Name: "a.py", FilePath: "a.py"},
			fn,
		},
		Relationships: []models.Relationship{
			{SourceID: "u", TargetID: "os", Kind: models.RelImports, Line: 1},
		},
	}
}

func TestBoltUnitCache_RoundTrip(t *testing.T) {
	c, path := openTemp(t)
	unit := sampleUnit()

	_, ok, err := c.Get(unit.Hash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(unit))

	got, ok, err := c.Get(unit.Hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, unit.Path, got.Path)
	assert.Equal(t, unit.Relationships, got.Relationships)
	require.Len(t, got.Entities, 2)
	assert.Equal(t, []string{"x", "y"}, got.Entities[1].StringsAttribute(models.AttrParameters))

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// entries survive reopen
	require.NoError(t, c.Close())
	reopened, err := Open(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	_, ok, err = reopened.Get(unit.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoltUnitCache_Clear(t *testing.T) {
	c, _ := openTemp(t)
	defer c.Close()

	require.NoError(t, c.Put(sampleUnit()))
	require.NoError(t, c.Clear())

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
