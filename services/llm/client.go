package llm

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// SourcePassage is one retrieved chunk handed to the generator, with its
// author attribution preserved for the citation-aware prompt.
type SourcePassage struct {
	AuthorWallet string `json:"author_wallet"`
	SourceFile   string `json:"source_file"`
	Text         string `json:"text"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
