package config

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON Schema describing File, suitable for editor
// validation of YAML config files.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Nothing is required; Load fills in defaults.
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	s := r.Reflect(&File{})
	s.Title = "linesh configuration"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
