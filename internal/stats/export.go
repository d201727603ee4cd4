package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/stresstype/internal/model"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// exportDoc is the document written by Export.
type exportDoc struct {
	Summary  Summary               `json:"summary" yaml:"summary"`
	Factors  []FactorTotal         `json:"factors" yaml:"factors"`
	Sessions []model.SessionRecord `json:"sessions" yaml:"sessions"`
}

// Export writes records with their summary and factor ranking as JSON or YAML.
func Export(w io.Writer, records []model.SessionRecord, format string) error {
	if records == nil {
		records = []model.SessionRecord{}
	}
	doc := exportDoc{
		Summary:  Summarize(records),
		Factors:  FactorTotals(records),
		Sessions: records,
	}
	switch strings.ToLower(format) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown export format %q (want json or yaml)", format)
	}
}
