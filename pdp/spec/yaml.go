package spec

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts the spec either as a JSON string or as a YAML
// mapping with the same keys.
func (s *SecuritySpec) UnmarshalYAML(node *yaml.Node) error {
	var raw []byte
	switch node.Kind {
	case yaml.ScalarNode:
		raw = []byte(node.Value)
	case yaml.MappingNode:
		var m map[string]interface{}
		if err := node.Decode(&m); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		raw = b
	default:
		return fmt.Errorf("%w: security must be a mapping or a JSON string", ErrInvalidSpec)
	}

	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}
