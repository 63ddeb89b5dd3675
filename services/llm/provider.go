// Package llm talks to the hosted language models behind practice generation.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a structured completion.
type Provider interface {
	// Generate returns the model output. When req.Schema is set, Content is JSON validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelID() string
}

type (
	Request struct {
		System      string
		Prompt      string
		Schema      *Schema
		MaxTokens   int
		Temperature float64
	}

	// Schema is a JSON Schema the output must conform to.
	Schema struct {
		Name        string // kebab-case
		Description string
		Definition  map[string]any
	}

	Response struct {
		Content json.RawMessage
		Model   string
		Usage   Usage
	}

	Usage struct {
		InputTokens  int
		OutputTokens int
	}
)
