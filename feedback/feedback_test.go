package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsBadRating(t *testing.T) {
	rec := &Record{Rating: "meh"}
	assert.Error(t, rec.Validate())
}

func TestValidateFillsDefaults(t *testing.T) {
	rec := &Record{Rating: RatingThumbsUp}
	require.NoError(t, rec.Validate())
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.PIIDetected)
}

func TestValidateFlagsPII(t *testing.T) {
	cases := []struct {
		comment string
		want    bool
	}{
		{"great answer", false},
		{"contact me at jane@example.com", true},
		{"call +1 415 555 0100 please", true},
		{"CO2 rose 50% since 1850", false},
	}
	for _, tc := range cases {
		rec := &Record{Rating: RatingThumbsDown, Comment: tc.comment}
		require.NoError(t, rec.Validate())
		assert.Equal(t, tc.want, rec.PIIDetected, tc.comment)
	}
}

func TestMemoryStoreCapsHistory(t *testing.T) {
	s := NewMemoryStore(2)
	for i := 0; i < 5; i++ {
		rec := &Record{Rating: RatingThumbsUp}
		require.NoError(t, rec.Validate())
		require.NoError(t, s.Save(context.Background(), rec))
	}
	out, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
