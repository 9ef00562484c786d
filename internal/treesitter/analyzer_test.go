package treesitter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/codeimpact/internal/models"
)

const pythonService = `import os
from pkg.mod import helper as h, other

class Base:
    pass

@dataclass
class Service(Base, mixins.Loggable):
    """Handles requests."""

    def __init__(self, name):
        self.name = name

    async def run(self, *args, timeout=5, **kwargs):
        import json
        helper(1)
        self.stop()
        return json.dumps(args)

    def stop(self):
        def inner(x: int):
            return os.getcwd()
        return inner(1)

print("module level")
`

func entityByQualifiedName(t *testing.T, res *UnitResult, qualified string) models.CodeEntity {
	t.Helper()
	for _, e := range res.Entities {
		if e.QualifiedName == qualified {
			return e
		}
	}
	t.Fatalf("entity %s not found", qualified)
	return models.CodeEntity{}
}

func relationshipTargets(res *UnitResult, sourceID string, kind models.RelationshipKind) []string {
	var targets []string
	for _, r := range res.Relationships {
		if r.SourceID == sourceID && r.Kind == kind {
			targets = append(targets, r.TargetID)
		}
	}
	return targets
}

func TestAnalyzeSource_PythonScopes(t *testing.T) {
	res, err := AnalyzeSource(context.Background(), "svc.py", []byte(pythonService))
	require.NoError(t, err)

	var names []string
	for _, e := range res.Entities {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"svc.py", "Base", "Service", "__init__", "run", "stop", "inner"}, names)

	unit := res.Entities[0]
	assert.Equal(t, models.KindSourceUnit, unit.Kind)
	assert.Empty(t, unit.OwnerID)

	service := entityByQualifiedName(t, res, "svc.py::Service")
	assert.Equal(t, models.KindTypeDefinition, service.Kind)
	assert.Equal(t, unit.ID, service.OwnerID)
	assert.Equal(t, []string{"Base", "mixins.Loggable"}, service.StringsAttribute(models.AttrBases))
	assert.Equal(t, []string{"dataclass"}, service.Annotations)
	assert.Equal(t, "Handles requests.", service.DocComment)
	assert.Equal(t, []string{"Base", "mixins.Loggable"}, relationshipTargets(res, service.ID, models.RelExtends))
	assert.Equal(t, []string{unit.ID}, relationshipTargets(res, service.ID, models.RelDefinedIn))

	run := entityByQualifiedName(t, res, "svc.py::Service.run")
	assert.Equal(t, models.KindMethod, run.Kind)
	assert.Equal(t, service.ID, run.OwnerID)
	assert.Equal(t, true, run.Attributes[models.AttrIsAsync])
	assert.Equal(t, []string{"self", "args", "timeout", "kwargs"}, run.StringsAttribute(models.AttrParameters))
	assert.Equal(t, []string{"json"}, run.ImportedNames)
	assert.Equal(t, []string{"helper", "self.stop", "json.dumps"}, run.InvokedNames)
	assert.Equal(t, run.InvokedNames, relationshipTargets(res, run.ID, models.RelInvokes))

	stop := entityByQualifiedName(t, res, "svc.py::Service.stop")
	inner := entityByQualifiedName(t, res, "svc.py::Service.stop.inner")
	assert.Equal(t, models.KindCallable, inner.Kind)
	assert.Equal(t, stop.ID, inner.OwnerID)
	assert.Equal(t, []string{"x"}, inner.StringsAttribute(models.AttrParameters))
	assert.Equal(t, []string{"os.getcwd"}, inner.InvokedNames)
	assert.Equal(t, []string{"inner"}, stop.InvokedNames)

	assert.Equal(t, []string{"os", "pkg.mod.helper", "pkg.mod.other", "json"},
		relationshipTargets(res, unit.ID, models.RelImports))

	for _, r := range res.Relationships {
		assert.NotEqual(t, "print", r.TargetID, "module-level calls are not tracked")
	}
}

func TestAnalyzeSource_Idempotent(t *testing.T) {
	first, err := AnalyzeSource(context.Background(), "svc.py", []byte(pythonService))
	require.NoError(t, err)
	second, err := AnalyzeSource(context.Background(), "svc.py", []byte(pythonService))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeSource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		code    string
		wantErr error
	}{
		{"syntax error", "broken.py", "def broken(:\n    pass\n", ErrParseFailed},
		{"unsupported extension", "main.go", "package main\n", ErrUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := AnalyzeSource(context.Background(), tt.path, []byte(tt.code))
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestAnalyzeSource_DuplicateNamesGetDistinctIDs(t *testing.T) {
	code := "def f():\n    pass\n\ndef f():\n    pass\n"
	res, err := AnalyzeSource(context.Background(), "dup.py", []byte(code))
	require.NoError(t, err)
	require.Len(t, res.Entities, 3)

	assert.Equal(t, "dup.py::f", res.Entities[1].QualifiedName)
	assert.Equal(t, "dup.py::f#2", res.Entities[2].QualifiedName)
	assert.NotEqual(t, res.Entities[1].ID, res.Entities[2].ID)
}

func TestAnalyzeSource_PythonDecorators(t *testing.T) {
	code := `@app.route("/items")
@functools.lru_cache
@staticmethod
def handler():
    pass
`
	res, err := AnalyzeSource(context.Background(), "routes.py", []byte(code))
	require.NoError(t, err)

	handler := entityByQualifiedName(t, res, "routes.py::handler")
	assert.Equal(t, []string{"app.route", "functools.lru_cache", "staticmethod"}, handler.Annotations)
}

func TestAnalyzeSource_PythonRelativeImports(t *testing.T) {
	code := "from . import sibling\nfrom ..pkg import thing\nfrom util import *\n"
	res, err := AnalyzeSource(context.Background(), "a/b.py", []byte(code))
	require.NoError(t, err)

	assert.Equal(t, []string{".sibling", "..pkg.thing", "util"},
		relationshipTargets(res, res.Entities[0].ID, models.RelImports))
}

const jsWidget = `import React, { useState as useS, useEffect } from 'react';
import './styles.css';
const fs = require('fs');

/** Base widget. */
class Widget extends Component {
  constructor(props) {
    super(props);
    this.render();
  }

  async load(url, opts = {}) {
    const data = await fetch(url);
    return new Parser(data).parse();
  }

  render() {
    return helper(this.props);
  }
}

export const helper = (props) => format(props.name);

function standalone(a, ...rest) {
  return fs.readFileSync(a);
}
`

func TestAnalyzeSource_JavaScript(t *testing.T) {
	res, err := AnalyzeSource(context.Background(), "ui/widget.js", []byte(jsWidget))
	require.NoError(t, err)
	assert.Equal(t, LangJavaScript, res.Language)

	var names []string
	for _, e := range res.Entities {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"ui/widget.js", "Widget", "constructor", "load", "render", "helper", "standalone"}, names)

	unit := res.Entities[0]
	assert.Equal(t, []string{"react", "react.useState", "react.useEffect", "./styles.css", "fs"},
		relationshipTargets(res, unit.ID, models.RelImports))

	widget := entityByQualifiedName(t, res, "ui/widget.js::Widget")
	assert.Equal(t, []string{"Component"}, widget.StringsAttribute(models.AttrBases))
	assert.Equal(t, "Base widget.", widget.DocComment)

	ctor := entityByQualifiedName(t, res, "ui/widget.js::Widget.constructor")
	assert.Equal(t, models.KindMethod, ctor.Kind)
	assert.Equal(t, []string{"this.render"}, ctor.InvokedNames)

	load := entityByQualifiedName(t, res, "ui/widget.js::Widget.load")
	assert.Equal(t, true, load.Attributes[models.AttrIsAsync])
	assert.Equal(t, []string{"url", "opts"}, load.StringsAttribute(models.AttrParameters))
	assert.Equal(t, []string{"fetch", "parse", "Parser"}, load.InvokedNames)

	helper := entityByQualifiedName(t, res, "ui/widget.js::helper")
	assert.Equal(t, models.KindCallable, helper.Kind)
	assert.Equal(t, unit.ID, helper.OwnerID)
	assert.Equal(t, []string{"props"}, helper.StringsAttribute(models.AttrParameters))
	assert.Equal(t, []string{"format"}, helper.InvokedNames)

	standalone := entityByQualifiedName(t, res, "ui/widget.js::standalone")
	assert.Equal(t, []string{"a", "rest"}, standalone.StringsAttribute(models.AttrParameters))
	assert.Equal(t, []string{"fs.readFileSync"}, standalone.InvokedNames)
}

func TestAnalyzeSource_TypeScriptHeritage(t *testing.T) {
	code := `interface Shape extends Named, Sized<number> {
  area(): number;
}

class Circle extends Base<Shape> implements Shape {
  radius: number;

  area(): number {
    return Math.pow(this.radius, 2);
  }
}
`
	res, err := AnalyzeSource(context.Background(), "shapes.ts", []byte(code))
	require.NoError(t, err)

	shape := entityByQualifiedName(t, res, "shapes.ts::Shape")
	assert.Equal(t, models.KindTypeDefinition, shape.Kind)
	assert.Equal(t, []string{"Named", "Sized"}, shape.StringsAttribute(models.AttrBases))

	circle := entityByQualifiedName(t, res, "shapes.ts::Circle")
	assert.Equal(t, []string{"Base", "Shape"}, circle.StringsAttribute(models.AttrBases))

	area := entityByQualifiedName(t, res, "shapes.ts::Circle.area")
	assert.Equal(t, models.KindMethod, area.Kind)
	assert.Equal(t, []string{"Math.pow"}, area.InvokedNames)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"a/b.py", LangPython},
		{"index.JS", LangJavaScript},
		{"lib/mod.mjs", LangJavaScript},
		{"src/app.ts", LangTypeScript},
		{"src/App.tsx", LangTSX},
		{"README.md", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectLanguage(tt.path))
		})
	}
}
