package llm

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the grounded user prompt: numbered source passages
// first, then the question. Passage numbering matches the [n] citation
// markers the system prompt asks for.
func BuildPrompt(question string, passages []SourcePassage) string {
	var b strings.Builder
	b.WriteString("Source passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (author %s, %s)\n%s\n\n", i+1, p.AuthorWallet, p.SourceFile, p.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
