package validate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

var compiled sync.Map

// ValidateJSON checks data against the JSON schema document in schemaSource.
// Compiled schemas are cached by source text.
func ValidateJSON(schemaSource []byte, data []byte) error {
	schema, err := loadSchema(schemaSource)
	if err != nil {
		return err
	}
	return validateJSON(schema, data)
}

func loadSchema(schemaSource []byte) (*jsonschema.Schema, error) {
	key := string(schemaSource)
	if cached, ok := compiled.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(schemaSource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled.Store(key, schema)
	return schema, nil
}

func validateJSON(schema *jsonschema.Schema, data []byte) error {
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	keys := make([]string, 0, len(result.Errors))
	for key := range result.Errors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	details := make([]string, 0, len(keys))
	for _, key := range keys {
		details = append(details, fmt.Sprintf("%s: %v", key, result.Errors[key]))
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(details, "; "))
}
