// Package metadata resolves display labels for vocabulary words from a
// per-section table of "identifier,targetText[,transliteration]" lines.
package metadata

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Entry is one parsed line of a metadata table.
type Entry struct {
	ID              string
	TargetText      string
	Transliteration string
}

// Table maps display keys to entries.
type Table struct {
	entries map[string]Entry
	skipped int
}

// Key normalises an identifier for lookup: underscores become spaces.
func Key(id string) string {
	return norm.NFC.String(strings.TrimSpace(strings.ReplaceAll(id, "_", " ")))
}

// Parse reads a metadata table. Lines with fewer than two comma-separated
// fields are skipped. Fields after the third are ignored. A later line for
// the same identifier replaces an earlier one.
func Parse(r io.Reader) (*Table, error) {
	t := &Table{entries: make(map[string]Entry)}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			t.skipped++
			continue
		}
		e := Entry{
			ID:         strings.TrimSpace(parts[0]),
			TargetText: strings.TrimSpace(parts[1]),
		}
		// The transliteration is kept byte for byte; only lookup keys are normalised.
		if len(parts) >= 3 {
			e.Transliteration = parts[2]
		}
		t.entries[Key(e.ID)] = e
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return t, nil
}

// Load parses the table at path. A missing file yields an empty table.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Table{entries: map[string]Entry{}}, nil
		}
		return nil, fmt.Errorf("open metadata %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Lookup finds the entry for a word identifier.
func (t *Table) Lookup(id string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[Key(id)]
	return e, ok
}

// Len is the number of distinct entries.
func (t *Table) Len() int { return len(t.entries) }

// Skipped is the number of malformed lines dropped while parsing.
func (t *Table) Skipped() int { return t.skipped }
