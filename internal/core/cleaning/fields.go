package cleaning

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

//go:embed schema.yaml
var schemaYAML []byte

// Shape classifies how a semantic field is stored.
type Shape string

const (
	ShapeList      Shape = "list"
	ShapeScalar    Shape = "scalar"
	ShapeCandidate Shape = "candidate"
)

type fieldSpec struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Shape Shape  `yaml:"shape"`
}

type schemaFile struct {
	Fields []fieldSpec `yaml:"fields"`
	Drop   []string    `yaml:"drop"`
}

// Schema holds the validated field-code mapping and shape classification.
// Built once at startup; a malformed table is a fatal configuration error,
// not something to work around per batch.
type Schema struct {
	rename map[string]string
	shapes map[string]Shape
	drop   map[string]struct{}
}

// LoadSchema parses and validates the embedded field schema.
func LoadSchema() (*Schema, error) {
	return parseSchema(schemaYAML)
}

func parseSchema(data []byte) (*Schema, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, domain.WrapError(domain.ErrConfiguration, "parse field schema", err)
	}
	if len(file.Fields) == 0 {
		return nil, domain.WrapError(domain.ErrConfiguration, "parse field schema", fmt.Errorf("no fields declared"))
	}

	s := &Schema{
		rename: make(map[string]string, len(file.Fields)),
		shapes: make(map[string]Shape, len(file.Fields)),
		drop:   make(map[string]struct{}, len(file.Drop)),
	}
	for _, name := range file.Drop {
		s.drop[name] = struct{}{}
	}

	seenNames := make(map[string]string, len(file.Fields))
	for _, spec := range file.Fields {
		if spec.Code == "" || spec.Name == "" {
			return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
				fmt.Errorf("field entry with empty code or name: %+v", spec))
		}
		if _, dup := s.rename[spec.Code]; dup {
			return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
				fmt.Errorf("duplicate field code %q", spec.Code))
		}
		// The mapping must be injective: two codes feeding one semantic name
		// would silently merge unrelated columns.
		if prev, dup := seenNames[spec.Name]; dup {
			return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
				fmt.Errorf("semantic name %q mapped from both %q and %q", spec.Name, prev, spec.Code))
		}
		seenNames[spec.Name] = spec.Code

		_, dropped := s.drop[spec.Name]
		switch spec.Shape {
		case ShapeList, ShapeScalar, ShapeCandidate:
			if dropped {
				return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
					fmt.Errorf("field %q is both shaped and dropped", spec.Name))
			}
			s.shapes[spec.Name] = spec.Shape
		case "":
			if !dropped {
				return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
					fmt.Errorf("field %q has no shape and is not dropped", spec.Name))
			}
		default:
			return nil, domain.WrapError(domain.ErrConfiguration, "validate field schema",
				fmt.Errorf("field %q has unknown shape %q", spec.Name, spec.Shape))
		}

		s.rename[spec.Code] = spec.Name
	}

	return s, nil
}

// SemanticName maps a field code to its semantic name. Unmapped codes pass
// through unchanged.
func (s *Schema) SemanticName(code string) string {
	if name, ok := s.rename[code]; ok {
		return name
	}
	return code
}

// ShapeOf returns the declared shape for a semantic field name.
func (s *Schema) ShapeOf(name string) (Shape, bool) {
	shape, ok := s.shapes[name]
	return shape, ok
}

// Dropped reports whether a semantic field is discarded after rename.
func (s *Schema) Dropped(name string) bool {
	_, ok := s.drop[name]
	return ok
}
