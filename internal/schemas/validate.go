// Package schemas validates settings payloads against embedded JSON Schemas.
package schemas

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed settings/*.json
var settingsFS embed.FS

// UnknownKeyError is returned for a settings key with no schema.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown settings key %q", e.Key)
}

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:")
	for _, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf(" %s: %s;", err.Field, err.Message))
	}
	return strings.TrimSuffix(sb.String(), ";")
}

var (
	compileOnce sync.Once
	compiled    map[string]*gojsonschema.Schema
	compileErr  error
)

func settingsSchemas() (map[string]*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		entries, err := settingsFS.ReadDir("settings")
		if err != nil {
			compileErr = &SchemaLoadError{Path: "settings", Message: "cannot list schemas", Cause: err}
			return
		}
		out := make(map[string]*gojsonschema.Schema, len(entries))
		for _, entry := range entries {
			path := "settings/" + entry.Name()
			data, err := settingsFS.ReadFile(path)
			if err != nil {
				compileErr = &SchemaLoadError{Path: path, Message: "cannot read schema", Cause: err}
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileErr = &SchemaLoadError{Path: path, Message: "invalid schema", Cause: err}
				return
			}
			out[strings.TrimSuffix(entry.Name(), ".json")] = schema
		}
		compiled = out
	})
	return compiled, compileErr
}

// Keys returns the settings keys that have a schema.
func Keys() ([]string, error) {
	all, err := settingsSchemas()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	return keys, nil
}

// ValidateSettings validates a settings value for key.
func ValidateSettings(key string, value []byte) error {
	all, err := settingsSchemas()
	if err != nil {
		return err
	}
	schema, ok := all[key]
	if !ok {
		return &UnknownKeyError{Key: key}
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(value))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	return resultError(result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}
	return resultError(result)
}

func resultError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
