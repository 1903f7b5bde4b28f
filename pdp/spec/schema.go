package spec

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "gatekeeper://security-spec.schema.json"

// The key names are persisted configuration and must not change.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "auth.path.rx":    {"type": "string", "minLength": 1},
    "policy":          {"type": "string"},
    "type":            {"type": "string", "enum": ["whitelist", "blacklist"]},
    "qualifier":       {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
    "predicate":       {"type": "string", "minLength": 1},
    "protector":       {"type": "string", "minLength": 1},
    "columns":         {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
    "indexes":         {"type": "array", "minItems": 1, "items": {"type": ["string", "integer"]}},
    "indices":         {"type": "array", "minItems": 1, "items": {"type": ["string", "integer"]}},
    "token.validator": {"type": "string"}
  },
  "dependencies": {
    "qualifier": ["type"],
    "protector": ["type"],
    "predicate": ["type"],
    "columns":   ["protector"],
    "indexes":   ["protector"],
    "indices":   ["protector"]
  }
}`

var schema = jsonschema.MustCompileString(schemaURL, schemaJSON)
