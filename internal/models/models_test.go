package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntityID_Deterministic(t *testing.T) {
	a := NewEntityID(KindCallable, "pkg/mod.py::run")
	b := NewEntityID(KindCallable, "pkg/mod.py::run")
	assert.Equal(t, a, b)

	// kind participates in the id
	assert.NotEqual(t, a, NewEntityID(KindMethod, "pkg/mod.py::run"))
	assert.NotEqual(t, a, NewEntityID(KindCallable, "pkg/mod.py::walk"))
}

func TestCodeEntity_StringsAttribute(t *testing.T) {
	e := &CodeEntity{}
	assert.Nil(t, e.StringsAttribute(AttrBases))

	e.SetAttribute(AttrBases, []string{"Base", "Mixin"})
	assert.Equal(t, []string{"Base", "Mixin"}, e.StringsAttribute(AttrBases))

	// attributes read back from JSON come in as []any
	data, err := json.Marshal(e)
	require.NoError(t, err)
	var decoded CodeEntity
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"Base", "Mixin"}, decoded.StringsAttribute(AttrBases))
}

func TestRelationship_Key(t *testing.T) {
	r1 := Relationship{SourceID: "a", TargetID: "b", Kind: RelInvokes}
	r2 := Relationship{SourceID: "a", TargetID: "b", Kind: RelInvokes, Line: 12}
	r3 := Relationship{SourceID: "a", TargetID: "b", Kind: RelImports}

	assert.Equal(t, r1.Key(), r2.Key())
	assert.NotEqual(t, r1.Key(), r3.Key())
}
