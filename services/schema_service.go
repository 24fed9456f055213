// file: services/schema_service.go
package services

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"shareform/formsync"
	"shareform/logger"
	"shareform/models"
	"shareform/protocol"
)

// LoadSchema reads a form schema from a YAML file. An empty path yields the
// default schema. The file maps view-model names to property names to
// initial values, and declaration order is kept:
//
//	band:
//	  bandVal: ""
//	  muted: false
func LoadSchema(path string) (*models.FormSchema, error) {
	if path == "" {
		logger.Info.Println("[LoadSchema] no schema file; using default band schema")
		return models.DefaultSchema(), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Info.Printf("[LoadSchema] loaded %d view-model(s) from %s", len(s.ViewModels), path)
	return s, nil
}

// ParseSchema decodes and validates YAML schema bytes.
func ParseSchema(data []byte) (*models.FormSchema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSchema, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", models.ErrInvalidSchema)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must map view-model names", models.ErrInvalidSchema)
	}

	s := &models.FormSchema{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i].Value, root.Content[i+1]
		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: line %d: %s must map property names", models.ErrInvalidSchema, body.Line, name)
		}
		vm := models.ViewModelSpec{Name: name}
		for j := 0; j+1 < len(body.Content); j += 2 {
			prop, node := body.Content[j].Value, body.Content[j+1]
			v, err := scalarValue(node)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %s.%s: %v", models.ErrInvalidSchema, node.Line, name, prop, err)
			}
			vm.Properties = append(vm.Properties, models.PropertySpec{Name: prop, Initial: v})
		}
		s.ViewModels = append(s.ViewModels, vm)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func scalarValue(n *yaml.Node) (protocol.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return protocol.Value{}, errors.New("initial value must be a string, bool or number")
	}
	switch n.ShortTag() {
	case "!!str":
		return protocol.String(n.Value), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return protocol.Value{}, err
		}
		return protocol.Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return protocol.Value{}, err
		}
		return protocol.Number(f), nil
	default:
		return protocol.Value{}, fmt.Errorf("unsupported initial value %q (%s)", n.Value, n.ShortTag())
	}
}

// SchemaFields flattens a schema into registry fields, keeping order.
func SchemaFields(s *models.FormSchema) []formsync.Field {
	var fields []formsync.Field
	for _, vm := range s.ViewModels {
		for _, p := range vm.Properties {
			fields = append(fields, formsync.Field{ViewModel: vm.Name, Property: p.Name, Initial: p.Initial})
		}
	}
	return fields
}
