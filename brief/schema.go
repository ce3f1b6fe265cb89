// ABOUTME: Embedded JSON Schema for the generator payload
// ABOUTME: Compiled once and applied before any prompt is sent
package brief

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const payloadSchemaURL = "payload.schema.json"

//go:embed schema/payload.schema.json
var payloadSchemaJSON []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func payloadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(payloadSchemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse payload schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(payloadSchemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to load payload schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile(payloadSchemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("failed to compile payload schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// ValidatePayload checks encoded payload JSON against the embedded schema.
func ValidatePayload(data []byte) error {
	sch, err := payloadSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("payload does not match schema: %w", err)
	}
	return nil
}
