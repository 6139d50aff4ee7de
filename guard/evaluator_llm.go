package guard

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/verdantiq/climatechat/common/logger"
	"github.com/verdantiq/climatechat/llm"
	"github.com/verdantiq/climatechat/schema"
)

// LLMEvaluator uses an LLM judge to score faithfulness when no dedicated
// scoring service is deployed.
type LLMEvaluator struct {
	Provider llm.Provider
}

const judgeSystemPrompt = `You are an expert at detecting unsupported claims in generated answers.
Given source documents, a question, and an answer, rate how faithful the answer is to the documents on a scale from 0 to 1.
0 means the answer is entirely unsupported or contradicts the documents; 1 means every claim is supported.
Respond with ONLY the score as a float between 0 and 1.`

var scorePattern = regexp.MustCompile(`(\d+(\.\d+)?)`)

func (e *LLMEvaluator) Score(ctx context.Context, query, answer string, docs []schema.SearchResult) (float64, error) {
	userPrompt := fmt.Sprintf("Documents:\n%s\n\nQuestion: %s\n\nAnswer: %s\n\nFaithfulness score:", joinDocs(docs), query, answer)
	fullPrompt := fmt.Sprintf("%s\n\n%s", judgeSystemPrompt, userPrompt)

	response, err := e.Provider.GenerateCompletion(ctx, fullPrompt)
	if err != nil {
		return 0, fmt.Errorf("faithfulness judge call failed, err: %w", err)
	}

	match := scorePattern.FindStringSubmatch(response)
	if len(match) == 0 {
		logger.Warnf("guard: could not parse score from judge response: %q", response)
		return 0, fmt.Errorf("could not parse faithfulness score from %q", response)
	}
	score, err := strconv.ParseFloat(match[1], 64)
	if err != nil || score < 0 || score > 1 {
		return 0, fmt.Errorf("faithfulness score %q out of range", match[1])
	}
	return score, nil
}
