package podcast

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/paperwavelabs/paperwave-core/internal/gen"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSummarizer(generate gen.GenerateFunc) *Summarizer {
	s := NewSummarizer(generate, 0, discardLogger())
	s.retryInitial = time.Millisecond
	s.retryMax = 2 * time.Millisecond
	return s
}

func TestSummarizeDirect(t *testing.T) {
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		return "  a compact summary  ", nil
	})

	out, err := s.Summarize(context.Background(), "some page text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a compact summary" {
		t.Fatalf("expected trimmed summary, got %q", out)
	}
}

func TestSummarizeOversizedSplitsRecursively(t *testing.T) {
	sentence := strings.Repeat("x", 98) + ". "
	text := strings.TrimSpace(strings.Repeat(sentence, 20))
	if len(text) < minSplitSize {
		t.Fatalf("test input too short: %d", len(text))
	}

	var calls int
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		calls++
		if len(prompt) > 1500 {
			return "", gen.ErrOversized
		}
		return "part", nil
	})

	out, err := s.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "part part" {
		t.Fatalf("expected joined half summaries, got %q", out)
	}
	if calls != 3 {
		t.Fatalf("expected 1 oversized call plus 2 half calls, got %d", calls)
	}
}

func TestSummarizeSmallOversizedRetriesSnippet(t *testing.T) {
	var sawSnippet bool
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Summarize this small snippet") {
			sawSnippet = true
			return "snippet summary", nil
		}
		return "", gen.ErrOversized
	})

	out, err := s.Summarize(context.Background(), "short but rejected text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sawSnippet {
		t.Fatal("expected snippet prompt to be attempted")
	}
	if out != "snippet summary" {
		t.Fatalf("expected snippet summary, got %q", out)
	}
}

func TestSummarizeSmallOversizedFallsBackToExcerpt(t *testing.T) {
	text := "unsummarizable text that keeps getting rejected"
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		return "", gen.ErrOversized
	})

	out, err := s.Summarize(context.Background(), text)
	if err != nil {
		t.Fatalf("expected excerpt fallback instead of error, got %v", err)
	}
	if out != text+"..." {
		t.Fatalf("expected literal excerpt, got %q", out)
	}
}

func TestSummarizeGenericErrorPropagates(t *testing.T) {
	boom := errors.New("upstream unavailable")
	var calls int
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "", boom
	})

	_, err := s.Summarize(context.Background(), "some text")
	if !errors.Is(err, boom) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls != maxGenerateAttempts {
		t.Fatalf("expected %d attempts, got %d", maxGenerateAttempts, calls)
	}
}

func TestSummarizePagesSkipsShortPages(t *testing.T) {
	var prompts []string
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return "summary", nil
	})

	pages := []string{
		"Title",
		strings.Repeat("real content here. ", 10),
		"   \n\t  ",
	}
	var reported []int
	out, err := s.SummarizePages(context.Background(), pages, func(page, total int) {
		if total != 3 {
			t.Fatalf("expected total 3, got %d", total)
		}
		reported = append(reported, page)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "summary" {
		t.Fatalf("expected single page summary, got %q", out)
	}
	if len(prompts) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(prompts))
	}
	if len(reported) != 1 || reported[0] != 2 {
		t.Fatalf("expected progress only for page 2, got %v", reported)
	}
}

func TestSummarizePagesSubstitutesExcerptOnFailure(t *testing.T) {
	goodPage := strings.Repeat("alpha beta gamma. ", 10)
	badPage := strings.Repeat("delta epsilon zeta. ", 10)
	boom := errors.New("model offline")
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "delta") {
			return "", boom
		}
		return "good summary", nil
	})

	out, err := s.SummarizePages(context.Background(), []string{goodPage, badPage}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "good summary") {
		t.Fatalf("expected good page summary in output, got %q", out)
	}
	if !strings.Contains(out, "delta epsilon zeta") || !strings.Contains(out, "...") {
		t.Fatalf("expected failed page to contribute an excerpt, got %q", out)
	}
}

func TestSummarizePagesTruncatesToBudget(t *testing.T) {
	page := strings.Repeat("words and more words. ", 10)
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		return strings.Repeat("s", 1500), nil
	})

	out, err := s.SummarizePages(context.Background(), []string{page, page}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != summaryMaxChars {
		t.Fatalf("expected summary truncated to %d chars, got %d", summaryMaxChars, len(out))
	}
}

func TestSummarizePagesNoContent(t *testing.T) {
	s := newTestSummarizer(func(ctx context.Context, prompt string) (string, error) {
		return "summary", nil
	})

	_, err := s.SummarizePages(context.Background(), []string{"", "short", "  \n "}, nil)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestSplitOnSentenceBoundary(t *testing.T) {
	left, right := splitOnSentenceBoundary("First sentence. Second sentence goes here after the boundary point.")
	if !strings.HasSuffix(left, ".") {
		t.Fatalf("expected left half ending on sentence boundary, got %q", left)
	}
	if !strings.HasPrefix(right, "Second") {
		t.Fatalf("expected right half starting at next sentence, got %q", right)
	}

	left, right = splitOnSentenceBoundary("nosentenceboundaryanywhereinthistext")
	if len(left) == 0 || len(right) == 0 {
		t.Fatal("expected midpoint split when no boundary exists")
	}
}
