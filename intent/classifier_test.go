package intent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/config"
	"github.com/verdantiq/climatechat/llm"
)

type scriptedProvider struct {
	reply string
	err   error
	delay time.Duration
}

func (p *scriptedProvider) GenerateCompletion(ctx context.Context, prompt string) (string, error) {
	return p.reply, p.err
}

func (p *scriptedProvider) Chat(ctx context.Context, system string, messages []llm.Message) (string, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.reply, p.err
}

func (p *scriptedProvider) GetProviderType() string { return "scripted" }

func TestClassifyValidOutput(t *testing.T) {
	p := &scriptedProvider{reply: `{"category":"on_topic","rewritten_query_english":"what is climate change","ask_how_to_use":false,"how_it_works_requested":false}`}
	c := NewLLMClassifier(p, config.ClassifierConfig{TimeoutMs: 1000})

	res, err := c.Classify(context.Background(), "que es el cambio climatico", nil)
	require.NoError(t, err)
	assert.Equal(t, CategoryOnTopic, res.Category)
	assert.Equal(t, "what is climate change", res.RewrittenQueryEnglish)
}

func TestClassifyFencedOutput(t *testing.T) {
	p := &scriptedProvider{reply: "```json\n{\"category\":\"greeting\",\"rewritten_query_english\":\"hello\",\"ask_how_to_use\":false,\"how_it_works_requested\":false}\n```"}
	c := NewLLMClassifier(p, config.ClassifierConfig{TimeoutMs: 1000})

	res, err := c.Classify(context.Background(), "hola", nil)
	require.NoError(t, err)
	assert.Equal(t, CategoryGreeting, res.Category)
}

func TestClassifyTimeoutReturnsTypedError(t *testing.T) {
	p := &scriptedProvider{reply: "{}", delay: 200 * time.Millisecond}
	c := NewLLMClassifier(p, config.ClassifierConfig{TimeoutMs: 20})

	_, err := c.Classify(context.Background(), "slow question", nil)
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
}

func TestClassifyMalformedOutputReturnsParseError(t *testing.T) {
	cases := []string{
		"I think this is about climate.",
		`{"category":"nonsense","rewritten_query_english":"x"}`,
		`{"category":"on_topic","rewritten_query_english":""}`,
		`{"category":"on_topic","rewritten_query_english":"x","extra_field":true}`,
	}
	for _, reply := range cases {
		p := &scriptedProvider{reply: reply}
		c := NewLLMClassifier(p, config.ClassifierConfig{TimeoutMs: 1000})
		_, err := c.Classify(context.Background(), "question", nil)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, reply)
	}
}

func TestClassifyTransportErrorIsParseClass(t *testing.T) {
	p := &scriptedProvider{err: fmt.Errorf("connection refused")}
	c := NewLLMClassifier(p, config.ClassifierConfig{TimeoutMs: 1000})
	_, err := c.Classify(context.Background(), "question", nil)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestClassifyEmptyQueryRejected(t *testing.T) {
	c := NewLLMClassifier(&scriptedProvider{}, config.ClassifierConfig{})
	_, err := c.Classify(context.Background(), "   ", nil)
	assert.Error(t, err)
}

// FailOpen must always be on-topic with the untouched query: the degraded
// path answers questions instead of rejecting them.
func TestFailOpenContract(t *testing.T) {
	res := FailOpen("como afecta el clima a mi region")
	assert.Equal(t, CategoryOnTopic, res.Category)
	assert.Equal(t, "como afecta el clima a mi region", res.RewrittenQueryEnglish)
	assert.False(t, res.AskHowToUse)
	assert.False(t, res.HowItWorksRequested)
}

func TestCategoryPredicates(t *testing.T) {
	assert.True(t, CategoryGreeting.IsCanned())
	assert.True(t, CategoryEmergency.IsCanned())
	assert.False(t, CategoryOnTopic.IsCanned())
	assert.False(t, CategoryOffTopic.IsCanned())
	assert.True(t, CategoryOffTopic.IsRejection())
	assert.True(t, CategoryHarmful.IsRejection())
	assert.False(t, CategoryOnTopic.IsRejection())
}
