package catalog

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Word is one vocabulary entry of a section.
type Word struct {
	ID        string
	Prefix    int  // numeric sort prefix, valid when HasPrefix
	HasPrefix bool
}

// SortKey returns the numeric prefix of an identifier: the part before the
// first underscore, if that part is entirely digits. Identifiers without
// such a prefix report false.
func SortKey(id string) (int, bool) {
	head, _, found := strings.Cut(id, "_")
	if !found {
		return 0, false
	}
	return digits(head)
}

func digits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// NewWord builds a Word with its sort prefix extracted from id.
func NewWord(id string) Word {
	n, ok := SortKey(id)
	return Word{ID: id, Prefix: n, HasPrefix: ok}
}

func (w Word) key() int {
	if !w.HasPrefix {
		return math.MaxInt
	}
	return w.Prefix
}

// Order sorts identifiers into canonical order: numeric prefix ascending,
// then unprefixed identifiers last. Ties keep their input order.
func Order(ids []string) []Word {
	words := make([]Word, len(ids))
	for i, id := range ids {
		words[i] = NewWord(id)
	}
	slices.SortStableFunc(words, func(a, b Word) int {
		ka, kb := a.key(), b.key()
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})
	return words
}

// IDs returns the identifiers of words in order.
func IDs(words []Word) []string {
	ids := make([]string, len(words))
	for i, w := range words {
		ids[i] = w.ID
	}
	return ids
}

// Restrict returns the words of all whose identifiers appear in ids, in the
// order of all. Each identifier is emitted as many times as it appears in ids.
// Identifiers absent from all follow, in the order given.
func Restrict(all []Word, ids []string) []Word {
	want := make(map[string]int, len(ids))
	for _, id := range ids {
		want[id]++
	}

	out := make([]Word, 0, len(ids))
	for _, w := range all {
		for n := want[w.ID]; n > 0; n-- {
			out = append(out, w)
		}
		delete(want, w.ID)
	}
	for _, id := range ids {
		if n, ok := want[id]; ok {
			for ; n > 0; n-- {
				out = append(out, NewWord(id))
			}
			delete(want, id)
		}
	}
	return out
}

// SectionKey returns the numeric prefix of a section name, which may be
// separated from the title by a dot, an underscore or a space.
func SectionKey(name string) (int, bool) {
	end := strings.IndexFunc(name, func(r rune) bool { return r < '0' || r > '9' })
	if end <= 0 {
		return 0, false
	}
	switch name[end] {
	case '.', '_', ' ':
		return digits(name[:end])
	}
	return 0, false
}

// OrderSections sorts section names by SectionKey, unprefixed names last.
func OrderSections(names []string) []string {
	out := slices.Clone(names)
	slices.SortStableFunc(out, func(a, b string) int {
		ka, okA := SectionKey(a)
		kb, okB := SectionKey(b)
		switch {
		case okA && !okB:
			return -1
		case !okA && okB:
			return 1
		case okA && okB && ka != kb:
			if ka < kb {
				return -1
			}
			return 1
		}
		return 0
	})
	return out
}
