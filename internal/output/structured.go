package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter outputs machine-readable JSON
type JSONFormatter struct {
	Indent string
}

func (f *JSONFormatter) FormatImpact(report *ImpactReport, w io.Writer) error {
	return f.encode(report, w)
}

func (f *JSONFormatter) FormatAnalysis(report *AnalysisReport, w io.Writer) error {
	return f.encode(report, w)
}

func (f *JSONFormatter) encode(v interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(v)
}

// YAMLFormatter outputs YAML with the same field names as JSON
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatImpact(report *ImpactReport, w io.Writer) error {
	return f.encode(report, w)
}

func (f *YAMLFormatter) FormatAnalysis(report *AnalysisReport, w io.Writer) error {
	return f.encode(report, w)
}

func (f *YAMLFormatter) encode(v interface{}, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
