package composer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/satindergrewal/wordrill/internal/audio"
	"github.com/satindergrewal/wordrill/internal/catalog"
)

// fakeDecoder returns constant-valued clips of a fixed length per word.
type fakeDecoder struct {
	calls    atomic.Int32
	length   map[string]time.Duration // per word, default 1s
	missing  map[string]catalog.Side
	failWith error
}

func (f *fakeDecoder) Decode(_ context.Context, section, wordID string, side catalog.Side) ([]int16, error) {
	f.calls.Add(1)
	if s, ok := f.missing[wordID]; ok && s == side {
		return nil, &ClipUnavailableError{Word: wordID, Side: side, Err: os.ErrNotExist}
	}
	if f.failWith != nil {
		return nil, f.failWith
	}
	d := time.Second
	if l, ok := f.length[wordID]; ok {
		d = l
	}
	clip := audio.Silence(d)
	v := int16(1)
	if side == catalog.Target {
		v = 2
	}
	for i := range clip {
		clip[i] = v
	}
	return clip, nil
}

func words(ids ...string) []catalog.Word {
	out := make([]catalog.Word, len(ids))
	for i, id := range ids {
		out[i] = catalog.NewWord(id)
	}
	return out
}

func passIDs(p Plan) [][]string {
	out := make([][]string, len(p))
	for i, pass := range p {
		out[i] = catalog.IDs(pass)
	}
	return out
}

// --- Plan ---

func TestBuildPlanFirstPassCanonical(t *testing.T) {
	in := words("1_a", "2_b", "3_c", "4_d", "5_e", "6_f")
	for seed := uint64(0); seed < 50; seed++ {
		plan := BuildPlan(in, 4, rand.New(rand.NewPCG(seed, seed)))
		if got := catalog.IDs(plan[0]); !slices.Equal(got, catalog.IDs(in)) {
			t.Fatalf("seed %d: pass 0 = %v, want canonical %v", seed, got, catalog.IDs(in))
		}
	}
}

func TestBuildPlanPassesArePermutations(t *testing.T) {
	in := words("1_a", "2_b", "3_c", "3_c", "Zed")
	want := catalog.IDs(in)
	slices.Sort(want)

	plan := BuildPlan(in, 6, rand.New(rand.NewPCG(7, 11)))
	if len(plan) != 6 {
		t.Fatalf("len(plan) = %d, want 6", len(plan))
	}
	for i, pass := range plan {
		got := catalog.IDs(pass)
		slices.Sort(got)
		if !slices.Equal(got, want) {
			t.Errorf("pass %d multiset = %v, want %v", i, got, want)
		}
	}
	if plan.Steps() != 30 {
		t.Errorf("Steps = %d, want 30", plan.Steps())
	}
}

func TestBuildPlanLaterPassesVary(t *testing.T) {
	in := words("1_a", "2_b", "3_c", "4_d", "5_e", "6_f", "7_g")
	r := rand.New(rand.NewPCG(1, 2))

	orders := make(map[string]bool)
	for i := 0; i < 20; i++ {
		plan := BuildPlan(in, 2, r)
		orders[fmt.Sprint(catalog.IDs(plan[1]))] = true
	}
	if len(orders) < 2 {
		t.Errorf("20 plans produced %d distinct pass-1 orders, want variation", len(orders))
	}
}

func TestBuildPlanSinglePassNeverShuffles(t *testing.T) {
	in := words("1_a", "2_b", "3_c")
	plan := BuildPlan(in, 1, panicShuffler{})
	if len(plan) != 1 || !slices.Equal(catalog.IDs(plan[0]), catalog.IDs(in)) {
		t.Errorf("plan = %v", passIDs(plan))
	}
}

type panicShuffler struct{}

func (panicShuffler) Shuffle(int, func(i, j int)) { panic("shuffle called") }

func TestBuildPlanDoesNotAliasInput(t *testing.T) {
	in := words("1_a", "2_b", "3_c", "4_d")
	plan := BuildPlan(in, 3, rand.New(rand.NewPCG(3, 3)))
	plan[0][0] = catalog.NewWord("x")
	if in[0].ID != "1_a" {
		t.Error("BuildPlan aliases the input slice")
	}
}

// --- Compose ---

func TestComposeDurationScenario(t *testing.T) {
	dec := &fakeDecoder{}
	c := New(dec, audio.WAVEncoder{}, WithSeed(42))

	track, err := c.Compose(context.Background(), Request{
		Section: "Fruits",
		Words:   words("A", "B"),
		Passes:  5,
		Pause:   2000 * time.Millisecond,
		Gap:     1000 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if track.Duration != 50*time.Second {
		t.Errorf("Duration = %v, want 50s", track.Duration)
	}
	if len(track.Trace) != 10 {
		t.Errorf("len(Trace) = %d, want 10", len(track.Trace))
	}
	if track.Format != audio.FormatWAV {
		t.Errorf("Format = %q, want wav", track.Format)
	}
	if len(track.Data) != 44+len(track.Samples)*2 {
		t.Errorf("encoded length = %d, want %d", len(track.Data), 44+len(track.Samples)*2)
	}
	if track.ID == "" {
		t.Error("track ID not set")
	}
	// Each distinct word is decoded once per side.
	if got := dec.calls.Load(); got != 4 {
		t.Errorf("decode calls = %d, want 4", got)
	}
}

func TestComposeDurationVaryingClips(t *testing.T) {
	dec := &fakeDecoder{length: map[string]time.Duration{
		"1_a": 700 * time.Millisecond,
		"2_b": 1300 * time.Millisecond,
		"3_c": 250 * time.Millisecond,
	}}
	c := New(dec, nil, WithSeed(1))

	const passes = 3
	pause, gap := 1500*time.Millisecond, 500*time.Millisecond
	track, err := c.Assemble(context.Background(), Request{
		Words: words("1_a", "2_b", "3_c"), Passes: passes, Pause: pause, Gap: gap,
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	var perPass time.Duration
	for _, l := range dec.length {
		perPass += l + pause + l + gap
	}
	if want := passes * perPass; track.Duration != want {
		t.Errorf("Duration = %v, want %v", track.Duration, want)
	}
	if track.Data != nil {
		t.Error("Assemble should not encode")
	}
}

func TestComposeSegmentLayout(t *testing.T) {
	dec := &fakeDecoder{length: map[string]time.Duration{"A": 100 * time.Millisecond}}
	c := New(dec, nil, WithSeed(9))

	pause, gap := 40*time.Millisecond, 20*time.Millisecond
	track, err := c.Assemble(context.Background(), Request{Words: words("A"), Passes: 1, Pause: pause, Gap: gap})
	if err != nil {
		t.Fatal(err)
	}

	clipN := audio.SamplesFor(100 * time.Millisecond)
	pauseN := audio.SamplesFor(pause)
	gapN := audio.SamplesFor(gap)
	s := track.Samples
	if len(s) != 2*clipN+pauseN+gapN {
		t.Fatalf("len = %d", len(s))
	}
	if s[0] != 1 || s[clipN-1] != 1 {
		t.Error("source clip not first")
	}
	if s[clipN] != 0 || s[clipN+pauseN-1] != 0 {
		t.Error("pause not silent")
	}
	if s[clipN+pauseN] != 2 || s[2*clipN+pauseN-1] != 2 {
		t.Error("target clip not after pause")
	}
	if s[len(s)-1] != 0 {
		t.Error("trailing gap not silent")
	}
}

func TestComposeTraceFollowsPlan(t *testing.T) {
	c := New(&fakeDecoder{}, nil, WithSeed(5))
	in := words("1_a", "2_b", "3_c", "4_d")
	track, err := c.Assemble(context.Background(), Request{Words: in, Passes: 3, Pause: time.Second, Gap: time.Second})
	if err != nil {
		t.Fatal(err)
	}

	var flat []string
	for _, pass := range track.Plan {
		flat = append(flat, catalog.IDs(pass)...)
	}
	var traced []string
	for i, st := range track.Trace {
		traced = append(traced, st.Word)
		if want := time.Duration(i) * 4 * time.Second; st.Offset != want {
			t.Errorf("step %d offset = %v, want %v", i, st.Offset, want)
		}
		if st.Pass != i/len(in) {
			t.Errorf("step %d pass = %d, want %d", i, st.Pass, i/len(in))
		}
	}
	if !slices.Equal(flat, traced) {
		t.Errorf("trace %v does not follow plan %v", traced, flat)
	}
	if !slices.Equal(traced[:4], catalog.IDs(in)) {
		t.Errorf("pass 0 = %v, want canonical", traced[:4])
	}
}

func TestComposeSeededIsDeterministic(t *testing.T) {
	in := words("1_a", "2_b", "3_c", "4_d", "5_e")
	req := Request{Words: in, Passes: 4}
	a, err := New(&fakeDecoder{}, nil, WithSeed(77)).Assemble(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(&fakeDecoder{}, nil, WithSeed(77)).Assemble(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if fmt.Sprint(passIDs(a.Plan)) != fmt.Sprint(passIDs(b.Plan)) {
		t.Errorf("same seed gave different plans:\n%v\n%v", passIDs(a.Plan), passIDs(b.Plan))
	}
}

func TestComposeEmptySelection(t *testing.T) {
	dec := &fakeDecoder{}
	c := New(dec, audio.WAVEncoder{})

	track, err := c.Compose(context.Background(), Request{Section: "Fruits", Passes: 5})
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("err = %v, want ErrEmptySelection", err)
	}
	if track != nil {
		t.Error("expected no track")
	}
	if got := dec.calls.Load(); got != 0 {
		t.Errorf("decode calls = %d, want 0", got)
	}
}

func TestComposeMissingTargetClip(t *testing.T) {
	dec := &fakeDecoder{missing: map[string]catalog.Side{"C": catalog.Target}}
	c := New(dec, audio.WAVEncoder{}, WithSeed(3))

	track, err := c.Compose(context.Background(), Request{Words: words("A", "B", "C"), Passes: 2})
	if !errors.Is(err, ErrClipUnavailable) {
		t.Fatalf("err = %v, want ErrClipUnavailable", err)
	}
	var cu *ClipUnavailableError
	if !errors.As(err, &cu) {
		t.Fatalf("err %T is not *ClipUnavailableError", err)
	}
	if cu.Word != "C" || cu.Side != catalog.Target {
		t.Errorf("error names %q/%q, want C/target", cu.Word, cu.Side)
	}
	if track != nil {
		t.Error("expected no partial track")
	}
}

func TestComposeReportsEarliestMissingWord(t *testing.T) {
	dec := &fakeDecoder{missing: map[string]catalog.Side{
		"B": catalog.Source,
		"D": catalog.Target,
	}}
	c := New(dec, nil, WithWorkers(1))

	_, err := c.Assemble(context.Background(), Request{Words: words("A", "B", "C", "D"), Passes: 1})
	var cu *ClipUnavailableError
	if !errors.As(err, &cu) || cu.Word != "B" || cu.Side != catalog.Source {
		t.Errorf("err = %v, want B/source", err)
	}
}

// slowSourceDecoder delays one word's source clip, so that word is still
// decoding when later words have already failed.
type slowSourceDecoder struct {
	slow    string
	delay   time.Duration
	missing map[string]catalog.Side
}

func (d slowSourceDecoder) Decode(ctx context.Context, _, wordID string, side catalog.Side) ([]int16, error) {
	if wordID == d.slow && side == catalog.Source {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s, ok := d.missing[wordID]; ok && s == side {
		return nil, &ClipUnavailableError{Word: wordID, Side: side, Err: os.ErrNotExist}
	}
	return audio.Silence(100 * time.Millisecond), nil
}

func TestComposeReportsEarliestMissingWordInParallel(t *testing.T) {
	dec := slowSourceDecoder{
		slow:  "A",
		delay: 100 * time.Millisecond,
		missing: map[string]catalog.Side{
			"A": catalog.Target,
			"B": catalog.Source,
		},
	}
	c := New(dec, nil, WithWorkers(4))

	_, err := c.Assemble(context.Background(), Request{Words: words("A", "B", "C"), Passes: 2})
	var cu *ClipUnavailableError
	if !errors.As(err, &cu) {
		t.Fatalf("err = %v, want *ClipUnavailableError", err)
	}
	if cu.Word != "A" || cu.Side != catalog.Target {
		t.Errorf("reported %s/%s, want A/target", cu.Word, cu.Side)
	}
}

func TestComposeWrapsDecodeFailure(t *testing.T) {
	boom := errors.New("boom")
	c := New(&fakeDecoder{failWith: boom}, nil)
	_, err := c.Assemble(context.Background(), Request{Words: words("A"), Passes: 1})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestComposeInvalidRequests(t *testing.T) {
	c := New(&fakeDecoder{}, nil)
	tests := []Request{
		{Words: words("A"), Passes: 0},
		{Words: words("A"), Passes: 1, Pause: -time.Second},
		{Words: words("A"), Passes: 1, Gap: -time.Millisecond},
	}
	for _, req := range tests {
		if _, err := c.Assemble(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("Assemble(%+v) err = %v, want ErrInvalidRequest", req, err)
		}
	}
}

func TestComposeWithoutEncoder(t *testing.T) {
	c := New(&fakeDecoder{}, nil)
	if _, err := c.Compose(context.Background(), Request{Words: words("A"), Passes: 1}); err == nil {
		t.Error("Compose without encoder should fail")
	}
}

func TestComposeConcurrentRequests(t *testing.T) {
	c := New(&fakeDecoder{}, audio.WAVEncoder{})
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := c.Compose(context.Background(), Request{Words: words("A", "B", "C"), Passes: 3})
			if err == nil && tr.Duration != 18*time.Second {
				err = fmt.Errorf("duration %v", tr.Duration)
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Error(err)
		}
	}
}

// --- FileDecoder ---

func TestFileDecoderMissingClip(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Fruits", "English"), 0o755); err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(catalog.Layout{Root: root, SourceDir: "English", TargetDir: "Chinese", Ext: ".mp3"})

	_, err := FileDecoder{Catalog: cat}.Decode(context.Background(), "Fruits", "1_Apple", catalog.Target)
	var cu *ClipUnavailableError
	if !errors.As(err, &cu) {
		t.Fatalf("err = %v, want *ClipUnavailableError", err)
	}
	if cu.Word != "1_Apple" || cu.Side != catalog.Target || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v", err)
	}
}

func TestFileDecoderRejectsEscapingIdentifiers(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "lib")
	if err := os.MkdirAll(filepath.Join(root, "Fruits", "English"), 0o755); err != nil {
		t.Fatal(err)
	}
	// A clip outside the audio root that a traversing identifier would reach.
	if err := os.WriteFile(filepath.Join(base, "secret.mp3"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(catalog.Layout{Root: root, SourceDir: "English", TargetDir: "Chinese", Ext: ".mp3"})

	for _, id := range []string{"../../secret", `..\..\secret`, "..", ""} {
		_, err := FileDecoder{Catalog: cat}.Decode(context.Background(), "Fruits", id, catalog.Source)
		var cu *ClipUnavailableError
		if !errors.As(err, &cu) {
			t.Fatalf("Decode(%q) err = %v, want *ClipUnavailableError", id, err)
		}
		if cu.Word != id || cu.Side != catalog.Source {
			t.Errorf("Decode(%q) reported %q/%s", id, cu.Word, cu.Side)
		}
		if errors.Is(err, os.ErrNotExist) {
			t.Errorf("Decode(%q) reached the filesystem: %v", id, err)
		}
	}

	if _, err := (FileDecoder{Catalog: cat}).Decode(context.Background(), "../lib/Fruits", "x", catalog.Source); !errors.Is(err, ErrClipUnavailable) {
		t.Errorf("escaping section err = %v, want ErrClipUnavailable", err)
	}
}

func TestClipUnavailableErrorMessage(t *testing.T) {
	err := &ClipUnavailableError{Word: "C", Side: catalog.Target}
	if err.Error() != `target clip for "C" unavailable` {
		t.Errorf("Error() = %q", err.Error())
	}
}
