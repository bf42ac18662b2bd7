// Package catalog enumerates the vocabulary sections and per-word clips
// stored under an audio root.
//
// A section is a folder holding two parallel clip folders (source and
// target language) keyed by identical word identifiers, plus an optional
// metadata table.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when a section folder is missing or holds no
// source-language clips.
var ErrNotFound = errors.New("not found")

// Side names one of the two parallel clip collections of a section.
type Side string

const (
	Source Side = "source"
	Target Side = "target"
)

// Layout describes where clips live on disk.
type Layout struct {
	Root      string // folder containing one folder per section
	SourceDir string // source-language clip folder inside a section
	TargetDir string // target-language clip folder inside a section
	Ext       string // clip file extension, including the dot
	InfoFile  string // metadata table file inside a section
}

// Catalog reads sections and words from a Layout. It holds no state between
// calls; every listing rescans storage.
type Catalog struct {
	layout Layout
}

// New creates a catalog over the given layout.
func New(layout Layout) *Catalog {
	return &Catalog{layout: layout}
}

// Layout returns the on-disk layout this catalog reads.
func (c *Catalog) Layout() Layout {
	return c.layout
}

// ClipPath returns the file path of one word's clip on the given side.
func (c *Catalog) ClipPath(section, wordID string, side Side) string {
	dir := c.layout.SourceDir
	if side == Target {
		dir = c.layout.TargetDir
	}
	return filepath.Join(c.layout.Root, section, dir, wordID+c.layout.Ext)
}

// InfoPath returns the metadata table path for a section.
func (c *Catalog) InfoPath(section string) string {
	return filepath.Join(c.layout.Root, section, c.layout.InfoFile)
}

// ListWords returns the section's words in canonical order.
func (c *Catalog) ListWords(section string) ([]Word, error) {
	if !ValidName(section) {
		return nil, fmt.Errorf("section %q: %w", section, ErrNotFound)
	}

	dir := filepath.Join(c.layout.Root, section, c.layout.SourceDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("section %q: %w", section, ErrNotFound)
		}
		return nil, fmt.Errorf("list section %q: %w", section, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), c.layout.Ext) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), c.layout.Ext))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("section %q has no clips: %w", section, ErrNotFound)
	}

	return Order(ids), nil
}

// Select restricts the section's canonical order to the given identifiers.
// Identifiers that are not in the listing keep their relative order and
// follow the known ones, so a later clip lookup can report them. Duplicate
// identifiers are kept.
func (c *Catalog) Select(section string, ids []string) ([]Word, error) {
	all, err := c.ListWords(section)
	if err != nil {
		return nil, err
	}
	return Restrict(all, ids), nil
}

// Sections returns the section folders under the root, ordered by their
// numeric prefix ("10. Numbers 2" sorts after "9. Numbers 1").
func (c *Catalog) Sections() ([]string, error) {
	entries, err := os.ReadDir(c.layout.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("audio root %q: %w", c.layout.Root, ErrNotFound)
		}
		return nil, fmt.Errorf("list sections: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	return OrderSections(names), nil
}

// ValidName rejects section names and word identifiers that would escape
// the audio root.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
