package llm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// OfflineClient produces a deterministic extractive answer from the source
// passages. It is selected when no OpenAI key is configured, keeping the
// full retrieve-settle-generate flow runnable in demos and tests.
type OfflineClient struct{}

func NewOfflineClient() *OfflineClient {
	return &OfflineClient{}
}

// Generate implements the LLMClient interface by quoting the first sentence
// of each numbered source passage embedded in the prompt.
func (o *OfflineClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Based on the compensated sources:")
	n := 0
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "Source passages:") || strings.HasPrefix(line, "Question:") {
			continue
		}
		n++
		fmt.Fprintf(&b, " %s [%d]", firstSentence(line), n)
	}
	if n == 0 {
		return "No compensated sources were retrieved for this question.", nil
	}
	return b.String(), nil
}

func firstSentence(text string) string {
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

// NewFromEnv selects the backend: OpenAI when a key is present, the offline
// client otherwise. Generation availability never blocks startup; whether
// an answer may be produced at all is the settlement gate's call, not ours.
func NewFromEnv() LLMClient {
	if os.Getenv("OPENAI_API_KEY") == "" {
		slog.Warn("OPENAI_API_KEY not set, using offline extractive answers")
		return NewOfflineClient()
	}
	client, err := NewOpenAIClient()
	if err != nil {
		slog.Warn("OpenAI client unavailable, using offline extractive answers", "error", err)
		return NewOfflineClient()
	}
	return client
}
