package licence

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Licence is one entry in the recognised licence table.
type Licence struct {
	URL     string `yaml:"url" json:"url"`
	Acronym string `yaml:"acronym" json:"acronym"`
	Version string `yaml:"version" json:"version"`
	Name    string `yaml:"name" json:"name"`
}

// Recognised is the ordered table of licences the publishing form offers.
// Matching is by substring containment and the first match wins, so order
// matters: the 4.0 entries sit ahead of their 3.0 counterparts.
var Recognised = []Licence{
	{URL: "https://creativecommons.org/publicdomain/zero/1.0/legalcode", Acronym: "CC0", Version: "1.0", Name: "Creative Commons Zero"},
	{URL: "https://creativecommons.org/licenses/by/4.0/legalcode", Acronym: "CC-BY", Version: "4.0", Name: "Creative Commons By Attribution 4.0"},
	{URL: "https://creativecommons.org/licenses/by-nc/4.0/legalcode", Acronym: "CC-BY-NC", Version: "4.0", Name: "Creative Commons Attribution-Noncommercial 4.0"},
	{URL: "https://creativecommons.org/licenses/by-nc-sa/4.0/legalcode", Acronym: "CC-BY-NC-SA", Version: "4.0", Name: "Creative Commons Attribution-Noncommercial Share Alike 4.0"},
	{URL: "https://creativecommons.org/licenses/by/3.0/legalcode", Acronym: "CC-BY", Version: "3.0", Name: "Creative Commons By Attribution 3.0"},
	{URL: "https://creativecommons.org/licenses/by-nc/3.0/legalcode", Acronym: "CC-BY-NC", Version: "3.0", Name: "Creative Commons Attribution-Noncommercial 3.0"},
	{URL: "https://creativecommons.org/licenses/by-nc-sa/3.0/legalcode", Acronym: "CC-BY-NC-SA", Version: "3.0", Name: "Creative Commons Attribution-Noncommercial Share Alike 3.0"},
}

// Table holds an ordered licence allow-list.
type Table struct {
	entries []Licence
}

func NewTable(entries []Licence) *Table {
	return &Table{entries: entries}
}

// Default returns the builtin seven-entry table.
func Default() *Table {
	return NewTable(Recognised)
}

// LoadFile reads a licence table from a YAML file, replacing the builtin
// entries. Used for deployments that recognise regional licence variants.
func LoadFile(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []Licence
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parsing licence config %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("licence config %s contains no entries", path)
	}
	return NewTable(entries), nil
}

func (t *Table) Entries() []Licence {
	return t.entries
}

// Lookup returns the first table entry whose canonical URL is contained in
// the supplied URL, or false when none match. Containment rather than
// equality keeps archives that append query strings or fragments matching.
func (t *Table) Lookup(url string) (Licence, bool) {
	if url == "" {
		return Licence{}, false
	}
	for _, l := range t.entries {
		if strings.Contains(url, l.URL) {
			return l, true
		}
	}
	return Licence{}, false
}

// Normalize maps a licence URL from archive metadata to its canonical
// allow-list value. Unrecognised URLs normalize to the empty string so the
// form's licence picker starts unset.
func (t *Table) Normalize(url string) string {
	if l, ok := t.Lookup(url); ok {
		return l.URL
	}
	return ""
}

func (t *Table) Recognised(url string) bool {
	_, ok := t.Lookup(url)
	return ok
}
