package action

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks action params against per-category JSON Schemas.
// Schemas are compiled once at construction; categories without a
// schema pass. Validation failures surface as constraint strings on the
// assessment, never as hard rejections.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the given category→schema map.
func NewValidator(schemas map[string]map[string]any) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*jsonschema.Schema)}

	for category, raw := range schemas {
		// Round-trip through JSON so the compiler sees plain decoded
		// values rather than typed Go maps.
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("marshal schema for %s: %w", category, err)
		}
		var obj any
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("unmarshal schema for %s: %w", category, err)
		}

		c := jsonschema.NewCompiler()
		name := category + ".json"
		if err := c.AddResource(name, obj); err != nil {
			return nil, fmt.Errorf("add schema for %s: %w", category, err)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", category, err)
		}
		v.schemas[category] = sch
	}
	return v, nil
}

// Validate checks a's params against its category schema. The returned
// strings are advisory constraints; an empty slice means the params
// conform or no schema is configured.
func (v *Validator) Validate(a *Action) []string {
	sch, ok := v.schemas[a.Category.String()]
	if !ok {
		return nil
	}

	// Round-trip params the same way so numbers come back as float64.
	data, err := json.Marshal(a.Params)
	if err != nil {
		return []string{fmt.Sprintf("params not serializable: %v", err)}
	}
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return []string{fmt.Sprintf("params not valid JSON: %v", err)}
	}

	if err := sch.Validate(obj); err != nil {
		return []string{fmt.Sprintf("params schema validation failed: %v", err)}
	}
	return nil
}
