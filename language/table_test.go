package language

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	tbl := NewDefaultTable()

	en, ok := tbl.Lookup("en")
	require.True(t, ok)
	assert.Equal(t, NovaDefault, en.RoutingClass)
	assert.Equal(t, "English", en.DisplayName)

	ar, ok := tbl.Lookup("ar")
	require.True(t, ok)
	assert.Equal(t, CommandA, ar.RoutingClass)

	// Codes are unique by construction.
	seen := map[string]bool{}
	for _, e := range tbl.Entries() {
		assert.False(t, seen[e.Code], "duplicate code %s", e.Code)
		seen[e.Code] = true
	}

	assert.Equal(t, tbl.Len(), len(tbl.ByClass(CommandA))+len(tbl.ByClass(NovaDefault)))
}

func TestLookupNormalizesRegionSubtags(t *testing.T) {
	tbl := NewDefaultTable()

	for _, code := range []string{"pt-BR", "pt_PT", "PT", " pt "} {
		e, ok := tbl.Lookup(code)
		require.True(t, ok, "code %q", code)
		assert.Equal(t, "pt", e.Code)
	}
}

func TestNewTableValidation(t *testing.T) {
	_, err := NewTable([]Entry{{Code: "es", DisplayName: "Spanish"}})
	assert.Error(t, err, "missing en must be rejected")

	_, err = NewTable([]Entry{
		{Code: "en", DisplayName: "English", RoutingClass: CommandA},
	})
	assert.Error(t, err, "en must route to nova")

	_, err = NewTable([]Entry{
		{Code: "en", DisplayName: "English"},
		{Code: "EN", DisplayName: "English again"},
	})
	assert.Error(t, err, "duplicate codes must be rejected")
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	data := `
- code: en
  name: English
  model: nova
- code: ar
  name: Arabic
  model: command_a
- code: es
  name: Spanish
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	ar, ok := tbl.Lookup("ar")
	require.True(t, ok)
	assert.Equal(t, CommandA, ar.RoutingClass)

	es, ok := tbl.Lookup("es")
	require.True(t, ok)
	assert.Equal(t, NovaDefault, es.RoutingClass)
}
