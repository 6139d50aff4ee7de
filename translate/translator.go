// Package translate moves text between English and the user's language using
// the model family chosen by the router.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/verdantiq/climatechat/language"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/router"
)

// Translator translates text into a target language named by code.
type Translator interface {
	Translate(ctx context.Context, text, targetCode string) (string, error)
}

// Service picks the provider per routing decision. The "none" provider is
// identity, which keeps English turns out of the translation path entirely.
type Service struct {
	table  *language.Table
	nova   llm.Provider
	cohere llm.Provider
}

// NewService builds a translator over both model families.
func NewService(table *language.Table, nova, cohere llm.Provider) *Service {
	return &Service{table: table, nova: nova, cohere: cohere}
}

// For returns the Translator matching a routing decision's provider.
func (s *Service) For(provider router.TranslationProvider) Translator {
	switch provider {
	case router.TranslateCohere:
		return &llmTranslator{table: s.table, provider: s.cohere}
	case router.TranslateNova:
		return &llmTranslator{table: s.table, provider: s.nova}
	default:
		return identityTranslator{}
	}
}

type identityTranslator struct{}

func (identityTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}

type llmTranslator struct {
	table    *language.Table
	provider llm.Provider
}

func (t *llmTranslator) Translate(ctx context.Context, text, targetCode string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	name := targetCode
	if entry, ok := t.table.Lookup(targetCode); ok {
		name = entry.DisplayName
	}
	if language.NormalizeCode(targetCode) == language.DefaultCode {
		return text, nil
	}
	out, err := t.provider.GenerateCompletion(ctx, llm.BuildTranslationPrompt(text, name))
	if err != nil {
		return "", fmt.Errorf("translate to %s failed, err: %w", targetCode, err)
	}
	return strings.TrimSpace(out), nil
}
