package podcast

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/paperwavelabs/paperwave-core/internal/speech"
)

// stubSynth is a scriptable Synthesizer for package tests.
type stubSynth struct {
	voices    []speech.Voice
	voicesErr error
	synthErr  map[string]error
}

func (s *stubSynth) Voices(ctx context.Context) ([]speech.Voice, error) {
	if s.voicesErr != nil {
		return nil, s.voicesErr
	}
	return s.voices, nil
}

func (s *stubSynth) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := s.synthErr[voiceID]; err != nil {
		return nil, err
	}
	return []byte(voiceID + "|" + text + "\n"), nil
}

var testPool = []string{"Alex", "Taylor", "Jordan", "Casey", "Morgan", "Riley", "Dakota"}

func TestPickNamesTruncatesSelected(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names := PickNames(2, testPool, []string{"Riley", "Alex", "Casey"}, rng)
	if len(names) != 2 || names[0] != "Riley" || names[1] != "Alex" {
		t.Fatalf("expected first two selected names, got %v", names)
	}
}

func TestPickNamesTopsUpFromPool(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names := PickNames(4, testPool, []string{"Morgan"}, rng)
	if len(names) != 4 {
		t.Fatalf("expected 4 names, got %v", names)
	}
	if names[0] != "Morgan" {
		t.Fatalf("expected selected name first, got %v", names)
	}
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			t.Fatalf("duplicate name %q in %v", name, names)
		}
		seen[name] = true
	}
}

func TestPickNamesRandomFromPool(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := PickNames(3, testPool, nil, rng)
	if len(names) != 3 {
		t.Fatalf("expected 3 names, got %v", names)
	}
	inPool := map[string]bool{}
	for _, name := range testPool {
		inPool[name] = true
	}
	seen := map[string]bool{}
	for _, name := range names {
		if !inPool[name] {
			t.Fatalf("name %q not from pool", name)
		}
		if seen[name] {
			t.Fatalf("duplicate name %q in %v", name, names)
		}
		seen[name] = true
	}
}

func TestPickNamesCapsAtPoolSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	names := PickNames(20, testPool, nil, rng)
	if len(names) != len(testPool) {
		t.Fatalf("expected pool-sized roster, got %d names", len(names))
	}
}

func TestAssignVoicesFromCatalog(t *testing.T) {
	synth := &stubSynth{voices: []speech.Voice{
		{ID: "v1", Name: "Aria"},
		{ID: "v2", Name: "Sol"},
	}}
	rng := rand.New(rand.NewSource(3))

	voices := AssignVoices(context.Background(), []string{"Alex", "Taylor"}, synth, rng, discardLogger())
	if len(voices) != 2 {
		t.Fatalf("expected 2 assignments, got %v", voices)
	}
	for _, key := range []string{"alex", "taylor"} {
		v, ok := voices[key]
		if !ok {
			t.Fatalf("expected lower-cased key %q, got %v", key, voices)
		}
		if v.ID != "v1" && v.ID != "v2" {
			t.Fatalf("expected catalog voice, got %v", v)
		}
	}
}

func TestAssignVoicesFiltersUnusableEntries(t *testing.T) {
	synth := &stubSynth{voices: []speech.Voice{
		{ID: "", Name: "Nameless"},
		{ID: "v9", Name: ""},
	}}
	rng := rand.New(rand.NewSource(3))

	voices := AssignVoices(context.Background(), []string{"Alex"}, synth, rng, discardLogger())
	v := voices["alex"]
	found := false
	for _, fb := range fallbackVoices {
		if v.ID == fb.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fallback voice when catalog is unusable, got %v", v)
	}
}

func TestAssignVoicesFallbackOnFetchError(t *testing.T) {
	synth := &stubSynth{voicesErr: context.DeadlineExceeded}
	rng := rand.New(rand.NewSource(3))

	speakers := []string{"Alex", "Taylor", "Jordan", "Casey", "Morgan", "Riley"}
	voices := AssignVoices(context.Background(), speakers, synth, rng, discardLogger())
	for i, name := range speakers {
		want := fallbackVoices[i%len(fallbackVoices)]
		got := voices[strings.ToLower(name)]
		if got.ID != want.ID {
			t.Fatalf("speaker %q: expected cycled fallback %v, got %v", name, want, got)
		}
	}
}
