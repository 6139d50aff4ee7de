package llm

import (
	"fmt"
	"strings"
)

const answerSystemPrompt = `You are a climate-education assistant. Answer the question using ONLY the numbered context passages below. Cite passages inline as [1], [2], ... where they support a statement. If the context does not contain the answer, say you do not know. Keep the tone factual and accessible.`

// BuildAnswerPrompt assembles the grounded-generation prompt from retrieved
// contexts. Passages are numbered so the model can emit citation indices.
func BuildAnswerPrompt(query string, contexts []string) string {
	var b strings.Builder
	b.WriteString(answerSystemPrompt)
	b.WriteString("\n\nContext passages:\n")
	for i, c := range contexts {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.ReplaceAll(c, "\n", " "))
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\nAnswer:")
	return b.String()
}

// BuildTranslationPrompt asks a model to translate text, preserving citation
// markers and refusing to add content.
func BuildTranslationPrompt(text, targetLanguage string) string {
	var b strings.Builder
	b.WriteString("Translate the following text into ")
	b.WriteString(targetLanguage)
	b.WriteString(". Preserve citation markers like [1] exactly. Output only the translation, nothing else.\n\n")
	b.WriteString(text)
	return b.String()
}
