package podcast

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/paperwavelabs/paperwave-core/internal/config"
	"github.com/paperwavelabs/paperwave-core/internal/extract"
	"github.com/paperwavelabs/paperwave-core/internal/gen"
	"github.com/paperwavelabs/paperwave-core/internal/task"
)

func testPodcastConfig() config.PodcastConfig {
	return config.PodcastConfig{
		ShowName: "Paperwave",
		NamePool: testPool,
	}
}

func waitForTerminal(t *testing.T, tasks *task.Store, id string) task.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := tasks.Get(id)
		if !ok {
			t.Fatalf("task %s disappeared", id)
		}
		if rec.Error || rec.Status == "Complete!" {
			return rec
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task did not reach a terminal state")
	return task.Record{}
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "paper.txt")
	doc := strings.Repeat("The study examines distributed consensus under churn. ", 3) +
		"\f" + strings.Repeat("Results show quorum latency dominates recovery time. ", 3)
	if err := os.WriteFile(docPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	generate := gen.GenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "podcast script") {
			return "Alex: Welcome to Paperwave.\nTaylor: Today we talk consensus.", nil
		}
		return "page summary", nil
	})

	tasks := task.NewStore()
	p := New(testPodcastConfig(), dir, &extract.TextExtractor{}, generate, &stubSynth{},
		tasks, nil, nil, discardLogger())
	p.clock = func() time.Time {
		return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	}

	rec := p.Submit(task.Parameters{
		Hosts:         2,
		LengthMinutes: 5,
		Speakers:      []string{"Alex", "Taylor"},
	}, docPath)
	if rec.Status != "Starting..." {
		t.Fatalf("expected fresh record, got %+v", rec)
	}

	final := waitForTerminal(t, tasks, rec.ID)
	if final.Error {
		t.Fatalf("expected success, got status %q", final.Status)
	}
	if final.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", final.Progress)
	}
	if final.Filename != "Paperwave_20260314_093000.mp3" {
		t.Fatalf("unexpected filename %q", final.Filename)
	}
	if final.DownloadURL != "/download/"+final.Filename {
		t.Fatalf("unexpected download URL %q", final.DownloadURL)
	}

	audio, err := os.ReadFile(filepath.Join(dir, final.Filename))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(audio), "Welcome to Paperwave.") ||
		!strings.Contains(string(audio), "Today we talk consensus.") {
		t.Fatalf("expected both dialogue lines rendered, got %q", audio)
	}
}

func TestPipelineFailsOnExtractError(t *testing.T) {
	tasks := task.NewStore()
	generate := gen.GenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "unused", nil
	})
	p := New(testPodcastConfig(), t.TempDir(), &extract.TextExtractor{}, generate, &stubSynth{},
		tasks, nil, nil, discardLogger())

	rec := p.Submit(task.Parameters{Hosts: 1, LengthMinutes: 5}, "/nonexistent/document.txt")
	final := waitForTerminal(t, tasks, rec.ID)
	if !final.Error {
		t.Fatalf("expected failure, got %+v", final)
	}
	if !strings.HasPrefix(final.Status, "Error: ") {
		t.Fatalf("expected error status prefix, got %q", final.Status)
	}
	if final.Progress != 0 {
		t.Fatalf("expected progress reset to 0, got %d", final.Progress)
	}
}

func TestPipelineFailsOnUnreadableDocument(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(docPath, []byte("tiny"), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	tasks := task.NewStore()
	generate := gen.GenerateFunc(func(ctx context.Context, prompt string) (string, error) {
		return "unused", nil
	})
	p := New(testPodcastConfig(), dir, &extract.TextExtractor{}, generate, &stubSynth{},
		tasks, nil, nil, discardLogger())

	rec := p.Submit(task.Parameters{Hosts: 1, LengthMinutes: 5}, docPath)
	final := waitForTerminal(t, tasks, rec.ID)
	if !final.Error {
		t.Fatalf("expected failure for content-free document, got %+v", final)
	}
	if !strings.Contains(final.Status, "no readable content") {
		t.Fatalf("unexpected error status %q", final.Status)
	}
}
