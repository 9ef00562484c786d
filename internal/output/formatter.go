package output

import (
	"fmt"
	"io"
	"strings"
)

// Formatter defines output formatting interface
type Formatter interface {
	FormatImpact(report *ImpactReport, w io.Writer) error
	FormatAnalysis(report *AnalysisReport, w io.Writer) error
}

// VerbosityLevel determines text output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // Level 1: One-line summary
	VerbosityStandard                       // Level 2: Summary, top files, critical paths
	VerbosityExplain                        // Level 3: Every impacted node and the matrix
)

// Output formats accepted by --format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// NewFormatter creates the formatter for format; level applies to text only
func NewFormatter(format string, level VerbosityLevel) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return newTextFormatter(level), nil
	case FormatJSON:
		return &JSONFormatter{Indent: "  "}, nil
	case FormatYAML:
		return &YAMLFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

func newTextFormatter(level VerbosityLevel) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityExplain:
		return &ExplainFormatter{}
	default:
		return &StandardFormatter{}
	}
}
