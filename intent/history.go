package intent

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/verdantiq/climatechat/schema"
)

// historyWindow bounds the conversation history shown to the classifier,
// first by turn count, then by a total token budget. The window is a tuning
// knob, not a correctness boundary.
type historyWindow struct {
	maxTurns    int
	tokenBudget int

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newHistoryWindow(maxTurns, tokenBudget int) *historyWindow {
	if maxTurns <= 0 {
		maxTurns = 6
	}
	if tokenBudget <= 0 {
		tokenBudget = 1500
	}
	return &historyWindow{maxTurns: maxTurns, tokenBudget: tokenBudget}
}

// Truncate keeps the most recent turns that fit both limits, preserving order.
func (w *historyWindow) Truncate(history []schema.Turn) []schema.Turn {
	if len(history) == 0 {
		return nil
	}
	if len(history) > w.maxTurns {
		history = history[len(history)-w.maxTurns:]
	}

	budget := w.tokenBudget
	kept := make([]schema.Turn, 0, len(history))
	// Walk newest-first so the most recent turns survive the budget.
	for i := len(history) - 1; i >= 0; i-- {
		cost := w.tokenCount(history[i].Content)
		if cost > budget && len(kept) > 0 {
			break
		}
		budget -= cost
		kept = append(kept, history[i])
		if budget <= 0 {
			break
		}
	}
	// Reverse back to chronological order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

func (w *historyWindow) tokenCount(text string) int {
	w.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			w.enc = enc
		}
	})
	if w.enc == nil {
		// Offline fallback: rough 4 bytes per token.
		return len(text)/4 + 1
	}
	return len(w.enc.Encode(text, nil, nil))
}
