// Package canned short-circuits low-stakes conversational categories with
// fixed templates, bypassing retrieval and generation entirely.
package canned

import (
	"context"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/language"
	"github.com/verdantiq/climatechat/translate"
)

// templates are the English source texts. Non-English users get these
// translated through the provider the router already selected for them.
var templates = map[intent.Category]string{
	intent.CategoryGreeting:    "Hello! I'm here to answer your questions about climate change, extreme weather, and how to adapt. What would you like to know?",
	intent.CategoryGoodbye:     "Goodbye! Come back any time you have questions about climate or weather.",
	intent.CategoryThanks:      "You're welcome! Feel free to ask me anything else about climate change or how to prepare for extreme weather.",
	intent.CategoryEmergency:   "If you are in immediate danger, please contact your local emergency services right away. I can share general preparedness information, but I cannot provide emergency assistance.",
	intent.CategoryInstruction: "Just type a question about climate change, extreme weather, or adaptation in any supported language, and I'll answer with cited sources. You can also ask follow-up questions in the same conversation.",
	intent.CategoryOffTopic:    "I'm a climate-education assistant, so I can only help with questions about climate, weather, and the environment. Could you ask me something in that area?",
	intent.CategoryHarmful:     "I can't help with that. I'm here to answer questions about climate change, extreme weather, and adaptation.",
}

// Dispatcher resolves canned categories to translated templates.
type Dispatcher struct {
	translator *translate.Service
}

// NewDispatcher builds a dispatcher over the translation service.
func NewDispatcher(translator *translate.Service) *Dispatcher {
	return &Dispatcher{translator: translator}
}

// Template returns the English template for a category, or false for
// categories the dispatcher does not handle (on_topic).
func Template(category intent.Category) (string, bool) {
	text, ok := templates[category]
	return text, ok
}

// Dispatch returns the translated template for a canned or rejection
// category. handled is false for on_topic, signalling the orchestrator to
// run the full pipeline. If translation fails the English template is
// returned rather than failing the turn.
func (d *Dispatcher) Dispatch(ctx context.Context, category intent.Category, langCode string, tr translate.Translator) (text string, handled bool, err error) {
	tmpl, ok := templates[category]
	if !ok {
		return "", false, nil
	}
	if language.NormalizeCode(langCode) == language.DefaultCode || tr == nil {
		return tmpl, true, nil
	}
	translated, terr := tr.Translate(ctx, tmpl, langCode)
	if terr != nil {
		// The English template still answers the user; a failed translation
		// must not fail a greeting.
		logger.Warnf("canned: template translation to %s failed: %v", langCode, terr)
		return tmpl, true, nil
	}
	return translated, true, nil
}
