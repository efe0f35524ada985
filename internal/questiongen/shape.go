package questiongen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// checkShape validates body against the template's JSON Schema. It
// reports the deepest failing location so the rule message points at the
// offending field.
func checkShape(tpl Template, body []byte) *SchemaViolationError {
	compiled, err := compiledSchema(tpl)
	if err != nil {
		// Template schemas are static; a compile failure is a bug here,
		// not a bad response.
		panic(fmt.Sprintf("questiongen: compile %s schema: %v", tpl.Type, err))
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return &SchemaViolationError{Rule: RuleShape, Message: err.Error()}
	}

	err = compiled.Validate(inst)
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &SchemaViolationError{Rule: RuleShape, Message: err.Error()}
	}
	leaf := deepestCause(verr)
	return &SchemaViolationError{
		Rule:    RuleShape,
		Message: fmt.Sprintf("at %s: %s", pointer(leaf.InstanceLocation), leafMessage(leaf)),
	}
}

func compiledSchema(tpl Template) (*jsonschema.Schema, error) {
	name := tpl.Schema.Name
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler expects decoded JSON values, so round-trip the Go
	// definition through encoding/json.
	defBytes, err := json.Marshal(tpl.Schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}

func deepestCause(e *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(e.Causes) > 0 {
		e = e.Causes[0]
	}
	return e
}

// leafMessage drops the "at '<location>': " prefix of a leaf error.
func leafMessage(e *jsonschema.ValidationError) string {
	msg := e.Error()
	if strings.HasPrefix(msg, "at ") {
		if _, rest, ok := strings.Cut(msg, "': "); ok {
			msg = rest
		}
	}
	return strings.TrimSpace(msg)
}

func pointer(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}
