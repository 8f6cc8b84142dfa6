package schema

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// metaSchemaJSON describes a schema definition document. A map with a string
// "type" is a leaf; any other map is a container of further nodes.
const metaSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "$ref": "#/definitions/tree",
  "definitions": {
    "tree": {
      "type": "object",
      "additionalProperties": { "$ref": "#/definitions/node" }
    },
    "node": {
      "type": "object",
      "if": {
        "required": ["type"],
        "properties": { "type": { "type": "string" } }
      },
      "then": { "$ref": "#/definitions/leaf" },
      "else": { "$ref": "#/definitions/tree" }
    },
    "bound": {
      "type": "array",
      "minItems": 1,
      "maxItems": 2,
      "items": [
        { "type": "integer", "minimum": 0 },
        { "type": "string" }
      ]
    },
    "leaf": {
      "type": "object",
      "properties": {
        "type": { "type": "string" },
        "required": { "type": "boolean" },
        "default": {},
        "validate": {
          "type": "array",
          "minItems": 1,
          "maxItems": 2,
          "items": [
            { "type": "string", "minLength": 1 },
            { "type": "string" }
          ]
        },
        "maxlength": { "$ref": "#/definitions/bound" },
        "minlength": { "$ref": "#/definitions/bound" },
        "transform": { "type": "string" },
        "of": { "type": "string" }
      },
      "additionalProperties": false
    }
  }
}`

var (
	metaOnce   sync.Once
	metaSchema *gojsonschema.Schema
	metaErr    error
)

func compiledMetaSchema() (*gojsonschema.Schema, error) {
	metaOnce.Do(func() {
		metaSchema, metaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(metaSchemaJSON))
	})
	return metaSchema, metaErr
}

// checkDefinition validates a decoded definition document against the
// meta-schema and reports the first structural problem.
func checkDefinition(doc map[string]any) error {
	meta, err := compiledMetaSchema()
	if err != nil {
		return fmt.Errorf("schema: compile meta-schema: %w", err)
	}

	res, err := meta.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return definitionErrorf("", "schema definition is not valid JSON data: %v", err)
	}
	if res.Valid() {
		return nil
	}

	first := res.Errors()[0]
	return definitionErrorf(first.Field(), "%s: %s", first.Field(), first.Description())
}
