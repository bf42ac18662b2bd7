package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func testLayout(root string) Layout {
	return Layout{
		Root:      root,
		SourceDir: "English",
		TargetDir: "Chinese",
		Ext:       ".mp3",
		InfoFile:  "Info.txt",
	}
}

func writeClips(t *testing.T, root, section, dir string, ids ...string) {
	t.Helper()
	full := filepath.Join(root, section, dir)
	if err := os.MkdirAll(full, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if err := os.WriteFile(filepath.Join(full, id+".mp3"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// --- Sort key ---

func TestSortKey(t *testing.T) {
	tests := []struct {
		id     string
		want   int
		wantOK bool
	}{
		{"3_Apple", 3, true},
		{"10_Banana", 10, true},
		{"007_Spy", 7, true},
		{"Cherry", 0, false},
		{"3", 0, false},
		{"3a_Apple", 0, false},
		{"_Apple", 0, false},
		{"Green_Apple", 0, false},
		{"12_Ice_Cream", 12, true},
		{"99999999999999999999999_Big", 0, false},
	}
	for _, tt := range tests {
		got, ok := SortKey(tt.id)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("SortKey(%q) = %d, %v, want %d, %v", tt.id, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestOrderNumericThenUnprefixed(t *testing.T) {
	got := IDs(Order([]string{"Cherry", "10_Banana", "3_Apple"}))
	want := []string{"3_Apple", "10_Banana", "Cherry"}
	if !slices.Equal(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestOrderStableForTies(t *testing.T) {
	got := IDs(Order([]string{"Zebra", "2_b", "Apple", "2_a", "1_z", "Mango"}))
	want := []string{"1_z", "2_b", "2_a", "Zebra", "Apple", "Mango"}
	if !slices.Equal(got, want) {
		t.Errorf("Order = %v, want %v", got, want)
	}
}

func TestRestrict(t *testing.T) {
	all := Order([]string{"1_a", "2_b", "3_c", "4_d"})
	got := IDs(Restrict(all, []string{"4_d", "ghost", "2_b"}))
	want := []string{"2_b", "4_d", "ghost"}
	if !slices.Equal(got, want) {
		t.Errorf("Restrict = %v, want %v", got, want)
	}
}

func TestRestrictKeepsDuplicates(t *testing.T) {
	all := Order([]string{"1_a", "2_b"})
	got := IDs(Restrict(all, []string{"2_b", "1_a", "2_b"}))
	want := []string{"1_a", "2_b", "2_b"}
	if !slices.Equal(got, want) {
		t.Errorf("Restrict = %v, want %v", got, want)
	}
}

func TestOrderSections(t *testing.T) {
	got := OrderSections([]string{"10. Numbers 2", "Misc", "2. Food & Drinks", "1. Fruits", "9. Numbers 1"})
	want := []string{"1. Fruits", "2. Food & Drinks", "9. Numbers 1", "10. Numbers 2", "Misc"}
	if !slices.Equal(got, want) {
		t.Errorf("OrderSections = %v, want %v", got, want)
	}
}

// --- Storage ---

func TestListWords(t *testing.T) {
	root := t.TempDir()
	writeClips(t, root, "1. Fruits", "English", "Cherry", "10_Banana", "3_Apple")
	if err := os.WriteFile(filepath.Join(root, "1. Fruits", "English", "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	c := New(testLayout(root))
	words, err := c.ListWords("1. Fruits")
	if err != nil {
		t.Fatalf("ListWords: %v", err)
	}
	want := []string{"3_Apple", "10_Banana", "Cherry"}
	if got := IDs(words); !slices.Equal(got, want) {
		t.Errorf("ListWords = %v, want %v", got, want)
	}
	if !words[0].HasPrefix || words[0].Prefix != 3 {
		t.Errorf("first word prefix = %+v", words[0])
	}
	if words[2].HasPrefix {
		t.Errorf("Cherry should have no prefix")
	}
}

func TestListWordsMissingSection(t *testing.T) {
	c := New(testLayout(t.TempDir()))
	if _, err := c.ListWords("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListWordsEmptySection(t *testing.T) {
	root := t.TempDir()
	writeClips(t, root, "Empty", "English")
	c := New(testLayout(root))
	if _, err := c.ListWords("Empty"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListWordsRejectsTraversal(t *testing.T) {
	c := New(testLayout(t.TempDir()))
	for _, s := range []string{"", "..", "../etc", `a\b`} {
		if _, err := c.ListWords(s); !errors.Is(err, ErrNotFound) {
			t.Errorf("ListWords(%q) err = %v, want ErrNotFound", s, err)
		}
	}
}

func TestValidName(t *testing.T) {
	for _, ok := range []string{"1_Apple", "Ice Cream", "1. Fruits", "..hidden"} {
		if !ValidName(ok) {
			t.Errorf("ValidName(%q) = false, want true", ok)
		}
	}
	for _, bad := range []string{"", ".", "..", "../x", "a/b", `a\b`, "../../../secret"} {
		if ValidName(bad) {
			t.Errorf("ValidName(%q) = true, want false", bad)
		}
	}
}

func TestSelect(t *testing.T) {
	root := t.TempDir()
	writeClips(t, root, "Fruits", "English", "1_Apple", "2_Pear", "3_Plum")
	c := New(testLayout(root))

	words, err := c.Select("Fruits", []string{"3_Plum", "1_Apple"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := IDs(words); !slices.Equal(got, []string{"1_Apple", "3_Plum"}) {
		t.Errorf("Select = %v", got)
	}
}

func TestSections(t *testing.T) {
	root := t.TempDir()
	writeClips(t, root, "2. Food", "English", "x")
	writeClips(t, root, "10. Numbers", "English", "x")
	writeClips(t, root, "1. Fruits", "English", "x")
	if err := os.MkdirAll(filepath.Join(root, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := New(testLayout(root))
	got, err := c.Sections()
	if err != nil {
		t.Fatalf("Sections: %v", err)
	}
	want := []string{"1. Fruits", "2. Food", "10. Numbers"}
	if !slices.Equal(got, want) {
		t.Errorf("Sections = %v, want %v", got, want)
	}
}

func TestSectionsMissingRoot(t *testing.T) {
	c := New(testLayout(filepath.Join(t.TempDir(), "missing")))
	if _, err := c.Sections(); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestClipPath(t *testing.T) {
	c := New(testLayout("/audio"))
	if got := c.ClipPath("Fruits", "1_Apple", Target); got != filepath.Join("/audio", "Fruits", "Chinese", "1_Apple.mp3") {
		t.Errorf("ClipPath = %q", got)
	}
	if got := c.ClipPath("Fruits", "1_Apple", Source); got != filepath.Join("/audio", "Fruits", "English", "1_Apple.mp3") {
		t.Errorf("ClipPath = %q", got)
	}
}
