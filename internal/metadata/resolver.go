package metadata

import (
	"log"
	"strings"

	"github.com/satindergrewal/wordrill/internal/catalog"
)

// Info is the resolved display data for one word.
type Info struct {
	ID              string `json:"id"`
	Label           string `json:"label"`
	TargetText      string `json:"target_text,omitempty"`
	Transliteration string `json:"transliteration,omitempty"`
}

// Display holds the label toggles chosen by the learner.
type Display struct {
	ShowTarget          bool
	ShowTransliteration bool
}

// Format joins the enabled parts of the label with " - ".
func (i Info) Format(d Display) string {
	parts := []string{i.Label}
	if d.ShowTarget && i.TargetText != "" {
		parts = append(parts, i.TargetText)
	}
	if d.ShowTransliteration && i.Transliteration != "" {
		parts = append(parts, i.Transliteration)
	}
	return strings.Join(parts, " - ")
}

// BaseLabel strips a numeric sort prefix and maps underscores to spaces.
func BaseLabel(id string) string {
	if _, ok := catalog.SortKey(id); ok {
		_, id, _ = strings.Cut(id, "_")
	}
	return strings.ReplaceAll(id, "_", " ")
}

// Resolver looks up word metadata for sections in a catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// NewResolver creates a resolver reading tables from the catalog's layout.
func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Table loads a section's metadata table. Read failures are logged and an
// empty table is returned so labels fall back to identifiers.
func (r *Resolver) Table(section string) *Table {
	t, err := Load(r.catalog.InfoPath(section))
	if err != nil {
		log.Printf("Metadata unavailable for %q: %v", section, err)
		return &Table{entries: map[string]Entry{}}
	}
	if t.Skipped() > 0 {
		log.Printf("Metadata for %q: skipped %d malformed lines", section, t.Skipped())
	}
	return t
}

// Resolve returns the display info of one word.
func (r *Resolver) Resolve(section, wordID string) Info {
	return ResolveWith(r.Table(section), wordID)
}

// ResolveAll resolves a list of words against one load of the section table.
func (r *Resolver) ResolveAll(section string, words []catalog.Word) []Info {
	t := r.Table(section)
	out := make([]Info, len(words))
	for i, w := range words {
		out[i] = ResolveWith(t, w.ID)
	}
	return out
}

// ResolveWith resolves a word against an already loaded table.
func ResolveWith(t *Table, wordID string) Info {
	info := Info{ID: wordID, Label: BaseLabel(wordID)}
	if e, ok := t.Lookup(wordID); ok {
		info.TargetText = e.TargetText
		info.Transliteration = e.Transliteration
	}
	return info
}
