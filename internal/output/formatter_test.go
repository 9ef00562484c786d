package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/codeimpact/internal/impact"
	"github.com/rohankatakam/codeimpact/internal/ingestion"
	"github.com/rohankatakam/codeimpact/internal/models"
)

func sampleResult() *impact.Result {
	return &impact.Result{
		SourceID: "A",
		MaxDepth: 5,
		Nodes: []impact.ImpactNode{
			{EntityID: "A", Name: "save", FilePath: "models.py", Kind: models.KindMethod, Score: 1.0, DirectOutDegree: 1},
			{EntityID: "B", Name: "create", FilePath: "views.py", Kind: models.KindCallable, Score: 0.63, Depth: 1},
			{EntityID: "C", Name: "handler", FilePath: "views.py", Kind: models.KindCallable, Score: 0.2, Depth: 2},
		},
		FileImpacts: []impact.FileImpact{
			{FilePath: "models.py", Score: 1.0, Entities: 1},
			{FilePath: "views.py", Score: 0.415, Entities: 2},
		},
		CriticalPaths: []impact.CriticalPath{
			{Target: "B", Nodes: []string{"A", "B"}, Score: 0.9},
		},
		Matrix: impact.ImpactMatrix{
			Files:  []string{"models.py", "views.py"},
			Values: [][]float64{{1.0, 0.9}, {0, 0.83}},
		},
		Generation: 3,
	}
}

func sampleAnalysis() *AnalysisReport {
	result := &ingestion.AnalysisResult{
		Root: "/repo",
		Stats: ingestion.AnalysisStats{
			Files:         ingestion.FileStats{Total: 2, Python: 2},
			UnitsParsed:   1,
			UnitsFailed:   1,
			Entities:      4,
			Relationships: 6,
			ByKind:        map[models.EntityKind]int{models.KindSourceUnit: 1, models.KindCallable: 3},
		},
		Resolution: ingestion.ResolutionStats{
			Total: 6, Resolved: 4, Unresolved: 2,
			ByKind: map[models.RelationshipKind]*ingestion.KindResolution{
				models.RelInvokes: {Resolved: 3, Unresolved: 1},
				models.RelImports: {Resolved: 1, Unresolved: 1},
			},
		},
		Diagnostics: []ingestion.Diagnostic{{Path: "broken.py", Err: assert.AnError}},
		Duration:    1500 * time.Millisecond,
	}
	return NewAnalysisReport(result, nil)
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		format  string
		level   VerbosityLevel
		want    Formatter
		wantErr bool
	}{
		{"text", VerbosityQuiet, &QuietFormatter{}, false},
		{"", VerbosityStandard, &StandardFormatter{}, false},
		{"TEXT", VerbosityExplain, &ExplainFormatter{}, false},
		{"json", VerbosityQuiet, &JSONFormatter{Indent: "  "}, false},
		{"yaml", VerbosityStandard, &YAMLFormatter{}, false},
		{"xml", VerbosityStandard, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := NewFormatter(tt.format, tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuietFormatter(t *testing.T) {
	tests := []struct {
		name     string
		result   *impact.Result
		expected string
	}{
		{
			name:     "impacted",
			result:   sampleResult(),
			expected: "⚠️  models.py::save: 3 entities in 2 files (high 1, medium 1, low 1)\n",
		},
		{
			name:     "missing entity",
			result:   &impact.Result{SourceID: "nope"},
			expected: "❓ nope not found\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := (&QuietFormatter{}).FormatImpact(NewImpactReport("/repo", tt.result, 5), &buf)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf.String())
		})
	}

	var buf bytes.Buffer
	require.NoError(t, (&QuietFormatter{}).FormatAnalysis(sampleAnalysis(), &buf))
	assert.Equal(t, "✅ 2 files, 4 entities, 6 relationships (2 unresolved), 1 failed\n", buf.String())
}

func TestStandardFormatter(t *testing.T) {
	var buf bytes.Buffer
	report := NewImpactReport("/repo", sampleResult(), 1)
	report.Cache = &impact.CacheStats{Hits: 2, Misses: 1}
	require.NoError(t, (&StandardFormatter{}).FormatImpact(report, &buf))

	out := buf.String()
	expectedStrings := []string{
		"🔍 Change Impact Analysis",
		"Root: /repo",
		"Source: models.py::save",
		"Impacted: 3 entities in 2 files",
		"Distribution: 1 high, 1 medium, 1 low",
		"1. 🔴 models.py 1.000 (1 entities)",
		"1. [0.900] save → create",
		"Cache: 2 hits, 1 misses",
	}
	for _, expected := range expectedStrings {
		assert.Contains(t, out, expected)
	}
	// top files bounded to 1
	assert.NotContains(t, out, "views.py 0.415")

	buf.Reset()
	require.NoError(t, (&StandardFormatter{}).FormatAnalysis(sampleAnalysis(), &buf))
	out = buf.String()
	for _, expected := range []string{
		"Files: 2 (python 2, javascript 0, typescript 0)",
		"Units: 1 parsed, 1 failed, 0 from cache",
		"  - callable: 3\n  - source_unit: 1",
		"Relationships: 6 (4 resolved, 2 unresolved)",
		"Duration: 1.5s",
		"- broken.py: ",
	} {
		assert.Contains(t, out, expected)
	}
}

func TestExplainFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&ExplainFormatter{}).FormatImpact(NewImpactReport("", sampleResult(), 5), &buf))
	out := buf.String()

	assert.Contains(t, out, "Impacted entities (generation 3)")
	assert.Contains(t, out, "views.py::handler [callable]")
	assert.Contains(t, out, "Impact matrix")
	assert.Contains(t, out, " 1.000  0.900")

	buf.Reset()
	require.NoError(t, (&ExplainFormatter{}).FormatAnalysis(sampleAnalysis(), &buf))
	assert.Contains(t, buf.String(), "  - imports: 1 resolved, 1 unresolved\n  - invokes: 3 resolved, 1 unresolved")
}

func TestStructuredFormatters(t *testing.T) {
	report := NewImpactReport("/repo", sampleResult(), 5)

	var jsonBuf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).FormatImpact(report, &jsonBuf))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	summary := decoded["summary"].(map[string]interface{})
	assert.Equal(t, float64(3), summary["total_impacted_nodes"])
	assert.Equal(t, "A", decoded["source"].(map[string]interface{})["entity_id"])

	var yamlBuf bytes.Buffer
	require.NoError(t, (&YAMLFormatter{}).FormatImpact(report, &yamlBuf))
	var yamlDecoded map[string]interface{}
	require.NoError(t, yaml.Unmarshal(yamlBuf.Bytes(), &yamlDecoded))
	assert.Equal(t, "/repo", yamlDecoded["root"])
	assert.True(t, strings.Contains(yamlBuf.String(), "impact_distribution:"))

	yamlBuf.Reset()
	require.NoError(t, (&YAMLFormatter{}).FormatAnalysis(sampleAnalysis(), &yamlBuf))
	assert.Contains(t, yamlBuf.String(), "units_failed: 1")
}

func TestVerbosity(t *testing.T) {
	tests := []struct {
		name    string
		want    VerbosityLevel
		wantErr bool
	}{
		{"quiet", VerbosityQuiet, false},
		{"", VerbosityStandard, false},
		{" Explain ", VerbosityExplain, false},
		{"loud", VerbosityStandard, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerbosity(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Setenv("GIT_AUTHOR_DATE", "")
	t.Setenv(VerbosityEnv, "explain")
	assert.Equal(t, VerbosityExplain, GetDefaultVerbosity())

	t.Setenv(VerbosityEnv, "")
	t.Setenv("GIT_AUTHOR_DATE", "@1700000000 +0000")
	assert.Equal(t, VerbosityQuiet, GetDefaultVerbosity())
}
