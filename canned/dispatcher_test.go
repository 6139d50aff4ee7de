package canned

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/intent"
)

type scriptedTranslator struct {
	out string
	err error
}

func (s *scriptedTranslator) Translate(ctx context.Context, text, targetCode string) (string, error) {
	return s.out, s.err
}

func TestDispatchOnTopicNotHandled(t *testing.T) {
	d := NewDispatcher(nil)
	_, handled, err := d.Dispatch(context.Background(), intent.CategoryOnTopic, "en", nil)
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestDispatchEnglishTemplates(t *testing.T) {
	d := NewDispatcher(nil)
	for _, cat := range []intent.Category{
		intent.CategoryGreeting, intent.CategoryGoodbye, intent.CategoryThanks,
		intent.CategoryEmergency, intent.CategoryInstruction,
		intent.CategoryOffTopic, intent.CategoryHarmful,
	} {
		text, handled, err := d.Dispatch(context.Background(), cat, "en", nil)
		require.NoError(t, err, string(cat))
		assert.True(t, handled, string(cat))
		want, _ := Template(cat)
		assert.Equal(t, want, text, string(cat))
	}
}

func TestDispatchTranslatesForNonEnglish(t *testing.T) {
	d := NewDispatcher(nil)
	tr := &scriptedTranslator{out: "¡Hola! Pregúntame sobre el clima."}
	text, handled, err := d.Dispatch(context.Background(), intent.CategoryGreeting, "es", tr)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, tr.out, text)
}

func TestDispatchFallsBackToEnglishOnTranslationFailure(t *testing.T) {
	d := NewDispatcher(nil)
	tr := &scriptedTranslator{err: fmt.Errorf("provider down")}
	text, handled, err := d.Dispatch(context.Background(), intent.CategoryGreeting, "es", tr)
	require.NoError(t, err)
	assert.True(t, handled)
	want, _ := Template(intent.CategoryGreeting)
	assert.Equal(t, want, text)
}
