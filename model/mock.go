package model

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Synthetic demo data for the violations and sample-data endpoints. Nothing in
// this file is persisted; the output is regenerated on every call and linked to
// a contract only by the contract_id string.

// Violation is a fabricated rule breach against a contract.
type Violation struct {
	ID         string    `json:"id"`
	ContractID string    `json:"contract_id"`
	Field      string    `json:"field"`
	Rule       string    `json:"rule"`
	Severity   string    `json:"severity"`
	Detail     string    `json:"detail"`
	DetectedAt time.Time `json:"detected_at"`
}

// SampleDataset is a fabricated tabular dataset shaped by a contract's fields.
type SampleDataset struct {
	ContractID string   `json:"contract_id"`
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
}

// contractFields is the subset of the generated YAML we need to shape mock
// output. Parsing failures are fine; we fall back to generic columns.
type contractFields struct {
	Fields []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"fields"`
}

var violationRules = []string{"NOT NULL", "UNIQUE", "freshness SLA", "retention policy", "completeness >= 99.9%"}
var severities = []string{"low", "medium", "high"}

// MockViolations fabricates n violations for a contract, using field names
// from the contract YAML when it parses.
func MockViolations(contractID, yamlText string, n int) []Violation {
	fields := fieldNames(yamlText)
	out := make([]Violation, 0, n)
	for i := 0; i < n; i++ {
		field := fields[rand.Intn(len(fields))]
		rule := violationRules[rand.Intn(len(violationRules))]
		out = append(out, Violation{
			ID:         uuid.New().String(),
			ContractID: contractID,
			Field:      field,
			Rule:       rule,
			Severity:   severities[rand.Intn(len(severities))],
			Detail:     fmt.Sprintf("synthetic violation of %q on field %q", rule, field),
			DetectedAt: time.Now().UTC().Add(-time.Duration(rand.Intn(72)) * time.Hour),
		})
	}
	return out
}

// MockDataset fabricates rows typed by the contract's field declarations.
func MockDataset(contractID, yamlText string, rows int) SampleDataset {
	var cf contractFields
	_ = yaml.Unmarshal([]byte(yamlText), &cf)

	ds := SampleDataset{ContractID: contractID}
	if len(cf.Fields) == 0 {
		ds.Columns = []string{"id", "value"}
		for i := 0; i < rows; i++ {
			ds.Rows = append(ds.Rows, []any{i + 1, rand.Float64() * 100})
		}
		return ds
	}

	for _, f := range cf.Fields {
		ds.Columns = append(ds.Columns, f.Name)
	}
	for i := 0; i < rows; i++ {
		row := make([]any, 0, len(cf.Fields))
		for _, f := range cf.Fields {
			row = append(row, mockValue(f.Name, f.Type, i))
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

func mockValue(name, typ string, i int) any {
	switch typ {
	case "int", "int32", "int64", "integer", "number":
		return rand.Intn(10000)
	case "float", "double", "decimal", "decimal(10,2)":
		return float64(rand.Intn(100000)) / 100
	case "bool", "boolean":
		return rand.Intn(2) == 0
	case "timestamp", "timestamp_ntz", "datetime", "date":
		return time.Now().UTC().Add(-time.Duration(i) * time.Hour).Format(time.RFC3339)
	default:
		return fmt.Sprintf("%s_%04d", name, i+1)
	}
}

func fieldNames(yamlText string) []string {
	var cf contractFields
	_ = yaml.Unmarshal([]byte(yamlText), &cf)
	if len(cf.Fields) == 0 {
		return []string{"unknown"}
	}
	names := make([]string, 0, len(cf.Fields))
	for _, f := range cf.Fields {
		names = append(names, f.Name)
	}
	return names
}
