package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/climatechat/schema"
)

func doc(id string) schema.SearchResult {
	return schema.SearchResult{Document: schema.Document{ID: id, Content: id}}
}

func TestRRFScoreFavorsDocumentsInBothLists(t *testing.T) {
	primary := []schema.SearchResult{doc("a"), doc("b"), doc("c")}
	fallback := []schema.SearchResult{doc("b"), doc("d")}

	out := RRFScore([][]schema.SearchResult{primary, fallback}, 0)
	require.Len(t, out, 4)
	assert.Equal(t, "b", out[0].Document.ID)
}

func TestRRFScoreSkipsEmptyIDs(t *testing.T) {
	out := RRFScore([][]schema.SearchResult{{doc("a"), {Document: schema.Document{Content: "no id"}}}}, 60)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Document.ID)
}

func TestRRFScoreDeterministicOnTies(t *testing.T) {
	lists := [][]schema.SearchResult{{doc("x"), doc("y")}, {doc("y"), doc("x")}}
	first := RRFScore(lists, 60)
	second := RRFScore(lists, 60)
	assert.Equal(t, first, second)
}
