package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/intent"
	"github.com/verdantiq/climatechat/language"
)

func TestDecideEnglish(t *testing.T) {
	r := New(language.NewDefaultTable())
	d, err := r.Decide("en", intent.CategoryOnTopic)
	require.NoError(t, err)
	assert.Equal(t, ModelNova, d.ModelType)
	assert.Equal(t, TranslateNone, d.TranslationProvider)
	assert.False(t, d.NeedsTranslationIn)
	assert.False(t, d.NeedsTranslationOut)
	assert.Equal(t, "en", d.LanguageCode)
}

func TestDecideByRoutingClass(t *testing.T) {
	r := New(language.NewDefaultTable())
	cases := []struct {
		code      string
		model     ModelType
		translate TranslationProvider
	}{
		{"es", ModelNova, TranslateNova},
		{"sw", ModelNova, TranslateNova},
		{"ar", ModelCohere, TranslateCohere},
		{"zh", ModelCohere, TranslateCohere},
		{"hi", ModelCohere, TranslateCohere},
	}
	for _, tc := range cases {
		d, err := r.Decide(tc.code, intent.CategoryOnTopic)
		require.NoError(t, err, tc.code)
		assert.Equal(t, tc.model, d.ModelType, tc.code)
		assert.Equal(t, tc.translate, d.TranslationProvider, tc.code)
		assert.True(t, d.NeedsTranslationIn, tc.code)
		assert.True(t, d.NeedsTranslationOut, tc.code)
	}
}

func TestDecideRegionSubtags(t *testing.T) {
	r := New(language.NewDefaultTable())
	d, err := r.Decide("pt-BR", intent.CategoryOnTopic)
	require.NoError(t, err)
	assert.Equal(t, "pt", d.LanguageCode)
}

func TestDecideUnknownDegradesToEnglish(t *testing.T) {
	r := New(language.NewDefaultTable())
	d, err := r.Decide("xx", intent.CategoryOnTopic)
	require.NoError(t, err)
	assert.Equal(t, "en", d.LanguageCode)
	assert.Equal(t, ModelNova, d.ModelType)
	assert.Equal(t, TranslateNone, d.TranslationProvider)
}

func TestDecideUnknownStrictFails(t *testing.T) {
	r := New(language.NewDefaultTable(), WithStrict())
	_, err := r.Decide("xx", intent.CategoryOnTopic)
	var ule *UnknownLanguageError
	require.ErrorAs(t, err, &ule)
	assert.Equal(t, "xx", ule.Code)
}

// The router is a pure function of the table: same input, same output.
func TestDecideDeterministic(t *testing.T) {
	r := New(language.NewDefaultTable())
	for _, code := range []string{"en", "es", "ar", "xx", "pt-BR"} {
		first, err1 := r.Decide(code, intent.CategoryOnTopic)
		second, err2 := r.Decide(code, intent.CategoryGreeting)
		require.Equal(t, err1, err2, code)
		assert.Equal(t, first, second, code)
	}
}
