package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/qbrtools/qbrank/pkg/models"
)

// ErrSchemaShape indicates the schema document carries no field list.
var ErrSchemaShape = errors.New("schema document has no fields")

// Schema describes the survey table: its fields, their types and
// constraints, and the enumerations id columns draw from. Field lists may
// appear at the top level or nested under a table block.
type Schema struct {
	Table  *Table          `yaml:"table" json:"table,omitempty"`
	Fields []Field         `yaml:"fields" json:"fields,omitempty"`
	Enums  map[string]Enum `yaml:"enums" json:"enums,omitempty"`
}

// Table is the nested table form of a schema document.
type Table struct {
	Name   string  `yaml:"name" json:"name,omitempty"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Field is one column definition.
type Field struct {
	Name        string       `yaml:"name" json:"name"`
	Type        string       `yaml:"type" json:"type"`
	Required    bool         `yaml:"required" json:"required,omitempty"`
	PrimaryKey  bool         `yaml:"primary_key" json:"primary_key,omitempty"`
	EnumRef     string       `yaml:"enum_ref" json:"enum_ref,omitempty"`
	Constraints *Constraints `yaml:"constraints" json:"constraints,omitempty"`
}

// Constraints bounds a numeric field.
type Constraints struct {
	Min *float64 `yaml:"min" json:"min,omitempty"`
	Max *float64 `yaml:"max" json:"max,omitempty"`
}

// Enum is a closed value set referenced by enum fields.
type Enum struct {
	Values []EnumValue `yaml:"values" json:"values"`
}

// EnumValue is one enum member with its display labels.
type EnumValue struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name,omitempty"`
	JA   string `yaml:"ja" json:"ja,omitempty"`
	EN   string `yaml:"en" json:"en,omitempty"`
}

// metaSchema validates the shape of schema documents before they are
// trusted. Matches the two accepted layouts: top-level fields or
// table.fields.
const metaSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "table": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "fields": {"$ref": "#/$defs/fields"}
      }
    },
    "fields": {"$ref": "#/$defs/fields"},
    "enums": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "values": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {"id": {"type": "string"}},
              "required": ["id"]
            }
          }
        },
        "required": ["values"]
      }
    }
  },
  "anyOf": [
    {"required": ["fields"]},
    {"properties": {"table": {"required": ["fields"]}}, "required": ["table"]}
  ],
  "$defs": {
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "type": {"enum": ["integer", "number", "string", "text", "boolean", "datetime", "date", "enum", "array"]},
          "required": {"type": "boolean"},
          "primary_key": {"type": "boolean"},
          "enum_ref": {"type": "string"},
          "constraints": {
            "type": "object",
            "properties": {
              "min": {"type": "number"},
              "max": {"type": "number"}
            }
          }
        },
        "required": ["name", "type"]
      }
    }
  }
}`

// LoadSchema reads a survey schema from a YAML or JSON file, checks the
// document shape against the embedded meta schema, and decodes it.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema: %w", err)
	}

	var schema Schema
	var raw any
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &schema); err != nil {
			return nil, fmt.Errorf("parsing schema %s: %w", path, err)
		}
	}

	if err := validateSchemaDoc(raw); err != nil {
		return nil, fmt.Errorf("invalid schema document %s: %w", path, err)
	}
	if len(schema.FieldList()) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrSchemaShape)
	}
	return &schema, nil
}

// validateSchemaDoc runs the meta schema over the decoded document. The
// document round-trips through JSON so the validator sees JSON-typed
// values regardless of the source format.
func validateSchemaDoc(raw any) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return err
	}

	meta, err := jsonschema.UnmarshalJSON(strings.NewReader(metaSchema))
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("survey-schema.json", meta); err != nil {
		return err
	}
	compiled, err := compiler.Compile("survey-schema.json")
	if err != nil {
		return err
	}

	return compiled.Validate(doc)
}

// FieldList returns the field definitions regardless of document layout.
func (s *Schema) FieldList() []Field {
	if s.Table != nil && len(s.Table.Fields) > 0 {
		return s.Table.Fields
	}
	return s.Fields
}

// RequiredColumns returns the names of all required fields.
func (s *Schema) RequiredColumns() []string {
	var out []string
	for _, f := range s.FieldList() {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// VendorIDs returns the valid vendor ids from the vendorId enum, or nil
// when the schema carries none.
func (s *Schema) VendorIDs() []string {
	enum, ok := s.Enums["vendorId"]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(enum.Values))
	for _, v := range enum.Values {
		ids = append(ids, v.ID)
	}
	return ids
}

// Validate checks loaded rows against the schema: required columns present
// in the header, score values within bounds over the given item columns,
// and vendor ids drawn from the enum. Findings are returned as
// human-readable issues; an empty result means the data conforms.
func (s *Schema) Validate(columns []string, rows []models.Response, items []string, scoreMin, scoreMax float64) []string {
	var issues []string

	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}

	var missing []string
	for _, name := range s.RequiredColumns() {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	for _, item := range items {
		if !present[item] {
			continue
		}
		out := 0
		for _, r := range rows {
			if v, ok := r.Score(item).Float(); ok && (v < scoreMin || v > scoreMax) {
				out++
			}
		}
		if out > 0 {
			issues = append(issues, fmt.Sprintf("%s: %d values outside %g-%g", item, out, scoreMin, scoreMax))
		}
	}

	if valid := s.VendorIDs(); len(valid) > 0 {
		validSet := make(map[string]bool, len(valid))
		for _, id := range valid {
			validSet[id] = true
		}
		seen := make(map[string]bool)
		var invalid []string
		for _, r := range rows {
			if !validSet[r.VendorID] && !seen[r.VendorID] {
				seen[r.VendorID] = true
				invalid = append(invalid, r.VendorID)
			}
		}
		if len(invalid) > 0 {
			issues = append(issues, fmt.Sprintf("unknown vendor ids: %s", strings.Join(invalid, ", ")))
		}
	}

	return issues
}
