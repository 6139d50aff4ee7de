// Package feedback persists user ratings of chatbot answers for later
// quality analysis.
package feedback

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/verdantiq/climatechat/config"
)

// Rating is the user's thumb signal.
type Rating string

const (
	RatingThumbsUp   Rating = "thumbs_up"
	RatingThumbsDown Rating = "thumbs_down"
)

// Record is one feedback submission.
type Record struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	Rating      Rating    `json:"rating"`
	Categories  []string  `json:"categories,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	Language    string    `json:"language,omitempty"`
	PIIDetected bool      `json:"pii_detected"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists feedback records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]*Record, error)
}

// NewStore builds a store from config.
func NewStore(ctx context.Context, cfg config.FeedbackConfig) (Store, error) {
	switch cfg.Provider {
	case "redis":
		if cfg.Redis == nil {
			return nil, fmt.Errorf("feedback redis provider requires redis config")
		}
		return newRedisStore(ctx, *cfg.Redis)
	case "memory", "":
		return NewMemoryStore(0), nil
	default:
		return nil, fmt.Errorf("unknown feedback provider: %s", cfg.Provider)
	}
}

// Validate fills defaults and rejects malformed submissions.
func (r *Record) Validate() error {
	switch r.Rating {
	case RatingThumbsUp, RatingThumbsDown:
	default:
		return fmt.Errorf("feedback_type must be thumbs_up or thumbs_down, got %q", r.Rating)
	}
	if len(r.Comment) > 4000 {
		return fmt.Errorf("comment exceeds 4000 characters")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.PIIDetected = containsPII(r.Comment)
	return nil
}

// Crude screening for emails and long digit runs so reviewers can skip
// comments that may carry personal data. Not a scrubber.
var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d[\d\s\-()]{7,}\d)`)
)

func containsPII(text string) bool {
	if text == "" {
		return false
	}
	return emailPattern.MatchString(text) || phonePattern.MatchString(text)
}
