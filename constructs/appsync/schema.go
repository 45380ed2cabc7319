package appsync

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Schema is a GraphQL schema definition in SDL.
type Schema struct {
	definition string
}

// SchemaFromString wraps an inline definition.
func SchemaFromString(definition string) *Schema {
	return &Schema{definition: definition}
}

// SchemaFromFile reads a definition from disk.
func SchemaFromFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return &Schema{definition: string(data)}, nil
}

// Definition returns the SDL text.
func (s *Schema) Definition() string { return s.definition }

func (s *Schema) validate() error {
	if s == nil || strings.TrimSpace(s.definition) == "" {
		return errors.New("Schema is required")
	}
	return nil
}
