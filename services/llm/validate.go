package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var (
	fenceRe = regexp.MustCompile("```(?:json)?\\n?|\\n?```")

	compiledSchemas sync.Map // schema name -> *jsonschema.Schema
)

// cleanContent drops the markdown code fences models like to wrap JSON in.
func cleanContent(raw string) json.RawMessage {
	return json.RawMessage(strings.TrimSpace(fenceRe.ReplaceAllString(raw, "")))
}

// validateContent cleans `raw` and checks it against `schema`, if any.
func validateContent(schema *Schema, raw string) (json.RawMessage, error) {
	content := cleanContent(raw)
	if schema == nil {
		return content, nil
	}

	var parsed any
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, &InvalidResponseError{Content: content, Err: errors.Wrap(err, "parsing JSON")}
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling schema %s", schema.Name)
	}
	if err := compiled.Validate(parsed); err != nil {
		return nil, &InvalidResponseError{Content: content, Err: err}
	}
	return content, nil
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := compiledSchemas.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// the compiler wants plain decoded JSON values
	b, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	var def any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("schema://%s.json", schema.Name)
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, err
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}
	compiledSchemas.Store(schema.Name, compiled)
	return compiled, nil
}
