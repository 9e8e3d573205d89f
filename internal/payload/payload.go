// Package payload checks the shape of incoming JSON bodies against the
// embedded JSON schemas before they are decoded into model types.
package payload

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"carepath/internal/apperr"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Kind names a request body schema.
type Kind string

const (
	StructureEdit   Kind = "structure_edit"
	TaskUpsert      Kind = "task_upsert"
	TranslationEdit Kind = "translation_edit"
	Assessment      Kind = "assessment"
	TaskResponse    Kind = "task_response"
	Enrollment      Kind = "enrollment"
	WaitOverrides   Kind = "wait_overrides"
	Reorder         Kind = "reorder"
)

const baseURL = "schema://carepath/"

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	compileOnce sync.Once
	compileMu   sync.Mutex
	compiler    *jsonschema.Compiler
	compileErr  error

	// compiled schemas by kind
	schemaCache sync.Map // map[Kind]*jsonschema.Schema
)

// Validate checks raw against the schema for kind. Shape failures are
// reported as validation errors with code bad_payload.
func Validate(kind Kind, raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return apperr.Validation("bad_payload", "invalid JSON: %v", err)
	}

	schema, err := compiled(kind)
	if err != nil {
		return err
	}
	if err := schema.Validate(parsed); err != nil {
		return apperr.Validation("bad_payload", "%s: %v", kind, err)
	}
	return nil
}

// Decode validates raw and unmarshals it into out.
func Decode(kind Kind, raw []byte, out any) error {
	if err := Validate(kind, raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Validation("bad_payload", "%s: %v", kind, err)
	}
	return nil
}

func compiled(kind Kind) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(kind); ok {
		return cached.(*jsonschema.Schema), nil
	}

	compileOnce.Do(loadResources)
	if compileErr != nil {
		return nil, compileErr
	}

	compileMu.Lock()
	schema, err := compiler.Compile(baseURL + string(kind) + ".json")
	compileMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", kind, err)
	}
	schemaCache.Store(kind, schema)
	return schema, nil
}

// loadResources registers every embedded schema so relative refs resolve.
func loadResources() {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		compileErr = fmt.Errorf("read schemas: %w", err)
		return
	}
	c := jsonschema.NewCompiler()
	for _, e := range entries {
		raw, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			compileErr = fmt.Errorf("read schema %s: %w", e.Name(), err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse schema %s: %w", e.Name(), err)
			return
		}
		if err := c.AddResource(baseURL+e.Name(), doc); err != nil {
			compileErr = fmt.Errorf("add schema %s: %w", e.Name(), err)
			return
		}
	}
	compiler = c
}
