package todo

import (
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/nextup/internal/utils"
)

// schemaURL is the resource name the bundled schema is compiled under.
const schemaURL = "https://github.com/nibzard/nextup/schema/state.schema.json"

// bundledSchema is the JSON Schema for the state document.
const bundledSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "nextup state",
  "type": "object",
  "additionalProperties": false,
  "required": ["schema_version", "pending", "completed"],
  "properties": {
    "schema_version": { "const": 1 },
    "pending": {
      "type": "array",
      "items": { "$ref": "#/$defs/entry" }
    },
    "completed": {
      "type": "array",
      "items": { "type": "string", "pattern": "\\S" }
    }
  },
  "$defs": {
    "date": {
      "type": "string",
      "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
    },
    "entry": {
      "type": "object",
      "additionalProperties": false,
      "required": ["priority", "due_date", "task"],
      "properties": {
        "priority": { "type": "integer" },
        "due_date": { "$ref": "#/$defs/date" },
        "task": { "$ref": "#/$defs/task" }
      }
    },
    "task": {
      "type": "object",
      "additionalProperties": false,
      "required": ["name", "priority", "due_date", "dependencies"],
      "properties": {
        "name": { "type": "string", "pattern": "\\S" },
        "priority": { "type": "integer" },
        "due_date": { "$ref": "#/$defs/date" },
        "dependencies": {
          "type": "array",
          "items": { "type": "string" }
        }
      }
    }
  }
}
`

// BundledSchema returns the embedded state schema JSON content.
func BundledSchema() []byte {
	return []byte(bundledSchema)
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaURL, strings.NewReader(bundledSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// validateWithSchema validates a decoded JSON value against the bundled
// schema and returns the leaf errors in the order the validator reports them.
func validateWithSchema(v interface{}) []*ValidationError {
	schema, err := compileSchema()
	if err != nil {
		return []*ValidationError{{Err: fmt.Errorf("compile schema: %w", err)}}
	}
	err = schema.Validate(v)
	if err == nil {
		return nil
	}

	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []*ValidationError{{Err: err}}
	}
	var out []*ValidationError
	collectSchemaErrors(&out, ve)
	return out
}

func collectSchemaErrors(out *[]*ValidationError, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		*out = append(*out, &ValidationError{
			Path: utils.JSONPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(out, cause)
	}
}
