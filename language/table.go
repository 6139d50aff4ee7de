// Package language holds the static language table: the single source of
// truth for which generation model serves each supported language. Both the
// router and the client-facing supported-languages endpoint consume it.
package language

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoutingClass selects the generation/translation model family for a language.
type RoutingClass int

const (
	// NovaDefault routes to the Nova model. Any language not in the
	// Command-A allow-list lands here.
	NovaDefault RoutingClass = iota
	// CommandA routes to the Cohere Command-A model for both generation
	// and translation.
	CommandA
)

func (c RoutingClass) String() string {
	if c == CommandA {
		return "command_a"
	}
	return "nova"
}

// DefaultCode is the fallback language for unknown or missing codes.
const DefaultCode = "en"

// Entry describes one supported language.
type Entry struct {
	Code         string       `json:"code" yaml:"code"`
	DisplayName  string       `json:"name" yaml:"name"`
	RoutingClass RoutingClass `json:"-" yaml:"-"`
}

// Table is an immutable language table, built once at startup.
type Table struct {
	entries map[string]Entry
	ordered []Entry
}

// defaultEntries is the compiled-in table. Command-A covers the languages the
// Nova family handles poorly; everything else defaults to Nova.
var defaultEntries = []struct {
	code, name string
	class      RoutingClass
}{
	{"en", "English", NovaDefault},
	{"es", "Spanish", NovaDefault},
	{"fr", "French", NovaDefault},
	{"de", "German", NovaDefault},
	{"pt", "Portuguese", NovaDefault},
	{"it", "Italian", NovaDefault},
	{"nl", "Dutch", NovaDefault},
	{"sv", "Swedish", NovaDefault},
	{"da", "Danish", NovaDefault},
	{"no", "Norwegian", NovaDefault},
	{"fi", "Finnish", NovaDefault},
	{"ar", "Arabic", CommandA},
	{"zh", "Chinese", CommandA},
	{"ja", "Japanese", CommandA},
	{"ko", "Korean", CommandA},
	{"hi", "Hindi", CommandA},
	{"fa", "Persian", CommandA},
	{"he", "Hebrew", CommandA},
	{"tr", "Turkish", CommandA},
	{"ru", "Russian", CommandA},
	{"uk", "Ukrainian", CommandA},
	{"pl", "Polish", CommandA},
	{"cs", "Czech", CommandA},
	{"el", "Greek", CommandA},
	{"ro", "Romanian", CommandA},
	{"id", "Indonesian", CommandA},
	{"vi", "Vietnamese", CommandA},
	{"th", "Thai", CommandA},
	{"sw", "Swahili", NovaDefault},
	{"am", "Amharic", NovaDefault},
}

// NewDefaultTable builds the compiled-in table.
func NewDefaultTable() *Table {
	entries := make([]Entry, 0, len(defaultEntries))
	for _, e := range defaultEntries {
		entries = append(entries, Entry{Code: e.code, DisplayName: e.name, RoutingClass: e.class})
	}
	t, err := NewTable(entries)
	if err != nil {
		// The compiled-in table is validated by tests; this cannot happen
		// at runtime.
		panic(err)
	}
	return t
}

// NewTable validates entries and builds an immutable table.
// Codes must be unique and "en" must be present with NovaDefault routing.
func NewTable(entries []Entry) (*Table, error) {
	m := make(map[string]Entry, len(entries))
	ordered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		code := NormalizeCode(e.Code)
		if code == "" {
			return nil, fmt.Errorf("language table contains empty code")
		}
		if _, dup := m[code]; dup {
			return nil, fmt.Errorf("duplicate language code %q", code)
		}
		e.Code = code
		m[code] = e
		ordered = append(ordered, e)
	}
	en, ok := m[DefaultCode]
	if !ok {
		return nil, fmt.Errorf("language table must contain %q", DefaultCode)
	}
	if en.RoutingClass != NovaDefault {
		return nil, fmt.Errorf("%q must route to nova", DefaultCode)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Code < ordered[j].Code })
	return &Table{entries: m, ordered: ordered}, nil
}

type yamlEntry struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// LoadTable reads a language table from a YAML file of
// {code, name, model: nova|command_a} entries.
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read language table failed, err: %w", err)
	}
	var items []yamlEntry
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse language table failed, err: %w", err)
	}
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		class := NovaDefault
		switch strings.ToLower(strings.TrimSpace(it.Model)) {
		case "command_a", "command-a", "cohere":
			class = CommandA
		case "", "nova":
		default:
			return nil, fmt.Errorf("unknown model class %q for language %q", it.Model, it.Code)
		}
		entries = append(entries, Entry{Code: it.Code, DisplayName: it.Name, RoutingClass: class})
	}
	return NewTable(entries)
}

// NormalizeCode lowercases a code and strips any region subtag ("pt-BR" -> "pt").
func NormalizeCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}

// Lookup returns the entry for a code, normalizing region subtags.
func (t *Table) Lookup(code string) (Entry, bool) {
	e, ok := t.entries[NormalizeCode(code)]
	return e, ok
}

// Contains reports whether a code is in the table.
func (t *Table) Contains(code string) bool {
	_, ok := t.Lookup(code)
	return ok
}

// Default returns the English entry.
func (t *Table) Default() Entry {
	return t.entries[DefaultCode]
}

// Entries returns all entries ordered by code.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// ByClass returns the entries of one routing class, ordered by code.
func (t *Table) ByClass(class RoutingClass) []Entry {
	out := make([]Entry, 0, len(t.ordered))
	for _, e := range t.ordered {
		if e.RoutingClass == class {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of supported languages.
func (t *Table) Len() int {
	return len(t.ordered)
}
