package podcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/paperwavelabs/paperwave-core/internal/gen"
)

const (
	// minSplitSize is the floor under which splitting text further is
	// unproductive; below it the summarizer degrades to a literal excerpt.
	minSplitSize = 1000
	// summaryMaxChars caps the final concatenated summary. Blunt byte
	// truncation, possibly mid-sentence; downstream prompt construction
	// assumes this fixed budget.
	summaryMaxChars = 2000
	// minPageChars filters blank and title-only pages after whitespace
	// normalization.
	minPageChars = 50

	excerptChars        = 500
	maxGenerateAttempts = 3
)

// ErrNoContent reports that no page of the document yielded a summary.
var ErrNoContent = errors.New("no readable content in document")

var whitespaceRe = regexp.MustCompile(`\s+`)

// Summarizer turns arbitrarily long text into a short concept summary,
// bounded by a fixed character budget and tolerant of upstream request-size
// rejection. The generation unit is injected so the splitting and backoff
// logic can be tested against a deterministic fake.
type Summarizer struct {
	generate gen.GenerateFunc
	logger   *slog.Logger

	minSplit     int
	pageDelay    time.Duration
	retryInitial time.Duration
	retryMax     time.Duration
}

func NewSummarizer(generate gen.GenerateFunc, pageDelay time.Duration, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		generate:     generate,
		logger:       logger.With(slog.String("component", "summarizer")),
		minSplit:     minSplitSize,
		pageDelay:    pageDelay,
		retryInitial: 2 * time.Second,
		retryMax:     10 * time.Second,
	}
}

// Summarize produces a concept summary of text. An oversized-input rejection
// from the generation service is absorbed by recursive splitting and never
// escapes; any other generation failure is returned after bounded retries.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	out, err := s.callUnit(ctx, summaryPrompt(text))
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, gen.ErrOversized) {
		return "", err
	}

	if len(text) < s.minSplit {
		truncated := text
		if len(truncated) > s.minSplit {
			truncated = truncated[:s.minSplit]
		}
		out, err := s.callUnit(ctx, snippetPrompt(truncated))
		if err != nil {
			// Terminal fallback: a literal excerpt instead of an error.
			return excerpt(truncated), nil
		}
		return out, nil
	}

	left, right := splitOnSentenceBoundary(text)
	leftSummary, err := s.Summarize(ctx, left)
	if err != nil {
		return "", err
	}
	rightSummary, err := s.Summarize(ctx, right)
	if err != nil {
		return "", err
	}
	return leftSummary + " " + rightSummary, nil
}

// SummarizePages summarizes each page of a document independently and joins
// the results, truncated to the summary budget. Pages below the content floor
// are skipped; a page whose summarization fails outright contributes a
// literal excerpt instead. onPage is invoked before each page is submitted.
func (s *Summarizer) SummarizePages(ctx context.Context, pages []string, onPage func(page, total int)) (string, error) {
	total := len(pages)
	var parts []string
	for i, raw := range pages {
		text := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
		if len(text) < minPageChars {
			continue
		}

		if onPage != nil {
			onPage(i+1, total)
		}

		summary, err := s.Summarize(ctx, text)
		if err != nil {
			s.logger.Warn("page summarization failed, using excerpt",
				slog.Int("page", i+1), slog.String("error", err.Error()))
			parts = append(parts, excerpt(text))
			continue
		}
		parts = append(parts, summary)

		// Pacing between upstream calls.
		if s.pageDelay > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(s.pageDelay):
			}
		}
	}

	if len(parts) == 0 {
		return "", ErrNoContent
	}

	joined := strings.Join(parts, " ")
	if len(joined) > summaryMaxChars {
		joined = joined[:summaryMaxChars]
	}
	return joined, nil
}

// callUnit performs one generation call with bounded retry. Oversized-input
// rejections are permanent from the retry loop's perspective; the caller
// handles them by splitting.
func (s *Summarizer) callUnit(ctx context.Context, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInitial
	bo.MaxInterval = s.retryMax
	bo.Multiplier = 2

	return backoff.Retry(ctx, func() (string, error) {
		out, err := s.generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, gen.ErrOversized) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		return strings.TrimSpace(out), nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(maxGenerateAttempts))
}

// splitOnSentenceBoundary divides text at the sentence end nearest the
// midpoint, scanning backward; if no sentence terminator precedes the
// midpoint it splits exactly there.
func splitOnSentenceBoundary(text string) (string, string) {
	mid := len(text) / 2
	idx := strings.LastIndex(text[:mid], ". ")
	if idx == -1 {
		return strings.TrimSpace(text[:mid]), strings.TrimSpace(text[mid:])
	}
	return strings.TrimSpace(text[:idx+1]), strings.TrimSpace(text[idx+1:])
}

func excerpt(text string) string {
	if len(text) > excerptChars {
		text = text[:excerptChars]
	}
	return text + "..."
}

func summaryPrompt(text string) string {
	return fmt.Sprintf(
		"Summarize the following academic content in a concise, concept-focused manner. Preserve key ideas:\n\n%s",
		text)
}

func snippetPrompt(text string) string {
	return "Summarize this small snippet concisely:\n\n" + text
}
