// Package router decides, per request, which generation model and
// translation path serve a language. The decision is a pure function of the
// language table entry: no I/O, no hidden state, identical input always
// yields identical output.
package router

import (
	"fmt"

	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/language"
)

// ModelType selects the generation model family.
type ModelType string

const (
	ModelNova   ModelType = "nova"
	ModelCohere ModelType = "cohere"
)

// TranslationProvider selects who translates user input and model output.
type TranslationProvider string

const (
	TranslateNone   TranslationProvider = "none"
	TranslateNova   TranslationProvider = "nova"
	TranslateCohere TranslationProvider = "cohere"
)

// Decision is the routing outcome for one request.
type Decision struct {
	ModelType           ModelType           `json:"model_type"`
	TranslationProvider TranslationProvider `json:"translation_provider"`
	NeedsTranslationIn  bool                `json:"needs_translation_in"`
	NeedsTranslationOut bool                `json:"needs_translation_out"`
	// LanguageCode is the code the decision was made for, after any
	// fallback to English.
	LanguageCode string `json:"language_code"`
}

// UnknownLanguageError is returned in strict mode for codes outside the table.
type UnknownLanguageError struct {
	Code string
}

func (e *UnknownLanguageError) Error() string {
	return fmt.Sprintf("unknown language code %q", e.Code)
}

// Router maps (language code, category) to a Decision against one table.
type Router struct {
	table *language.Table
	// strict makes unknown codes an error instead of degrading to English.
	// Default is the silent-degrade policy: callers that need to surface
	// unsupported languages to users opt in explicitly.
	strict bool
}

// Option configures a Router.
type Option func(*Router)

// WithStrict makes unknown language codes fail with UnknownLanguageError.
func WithStrict() Option {
	return func(r *Router) { r.strict = true }
}

// New creates a Router over a language table.
func New(table *language.Table, opts ...Option) *Router {
	r := &Router{table: table}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Decide resolves the model and translation path for a language code.
// category may be intent.CategoryUnknown when classification has not run yet;
// it is part of the contract so callers can route canned responses through
// the same translation provider as generated ones.
func (r *Router) Decide(code string, category intent.Category) (Decision, error) {
	_ = category // routing is language-driven; the category rides along for the contract

	entry, ok := r.table.Lookup(code)
	if !ok {
		if r.strict {
			return Decision{}, &UnknownLanguageError{Code: code}
		}
		entry = r.table.Default()
	}

	d := Decision{LanguageCode: entry.Code}
	switch entry.RoutingClass {
	case language.CommandA:
		d.ModelType = ModelCohere
		d.TranslationProvider = TranslateCohere
	default:
		d.ModelType = ModelNova
		d.TranslationProvider = TranslateNova
	}

	if entry.Code == language.DefaultCode {
		d.TranslationProvider = TranslateNone
		d.NeedsTranslationIn = false
		d.NeedsTranslationOut = false
	} else {
		d.NeedsTranslationIn = true
		d.NeedsTranslationOut = true
	}
	return d, nil
}
