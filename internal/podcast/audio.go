package podcast

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/paperwavelabs/paperwave-core/internal/speech"
)

var (
	emphasisRe     = regexp.MustCompile(`\*+`)
	speakerLabelRe = regexp.MustCompile(`^[A-Za-z]+:\s*`)
)

// Renderer converts a dialogue script into one audio byte stream, line by
// line, with per-line fault isolation: a failed or unresolvable line is
// skipped and contributes neither audio nor progress.
type Renderer struct {
	synth  speech.Synthesizer
	logger *slog.Logger
}

func NewRenderer(synth speech.Synthesizer, logger *slog.Logger) *Renderer {
	return &Renderer{
		synth:  synth,
		logger: logger.With(slog.String("component", "renderer")),
	}
}

// Render synthesizes every dialogue line of the script and concatenates the
// successful segments in original order. Non-dialogue lines are discarded.
// onLine reports (rendered, total dialogue lines) after each success.
// Render never fails the task; total synthesis failure yields empty output.
func (r *Renderer) Render(ctx context.Context, script string, speakers []string, voices map[string]speech.Voice, onLine func(done, total int)) []byte {
	var lines []string
	for _, raw := range strings.Split(script, "\n") {
		if line := cleanLine(raw); line != "" {
			lines = append(lines, line)
		}
	}

	speakersLower := make([]string, len(speakers))
	for i, name := range speakers {
		speakersLower[i] = strings.ToLower(name)
	}

	total := 0
	for _, line := range lines {
		if isDialogueLine(line, speakersLower) {
			total++
		}
	}

	var out bytes.Buffer
	done := 0
	for _, line := range lines {
		if !isDialogueLine(line, speakersLower) {
			continue
		}

		voice, ok := voiceForLine(line, voices)
		if !ok {
			r.logger.Warn("no voice resolved for line, skipping", slog.String("line", line))
			continue
		}
		content := stripSpeakerLabel(line)

		segment, err := r.synth.Synthesize(ctx, content, voice.ID)
		if err != nil {
			r.logger.Warn("line synthesis failed, skipping",
				slog.String("voice_id", voice.ID), slog.String("error", err.Error()))
			continue
		}

		out.Write(segment)
		done++
		if onLine != nil {
			onLine(done, total)
		}
	}
	return out.Bytes()
}

// cleanLine strips emphasis markup and surrounding whitespace.
func cleanLine(line string) string {
	return strings.TrimSpace(emphasisRe.ReplaceAllString(line, ""))
}

// isDialogueLine reports whether the line starts, case-insensitively, with a
// known speaker name followed by a colon.
func isDialogueLine(line string, speakersLower []string) bool {
	lower := strings.TrimLeft(strings.ToLower(line), " \t")
	for _, name := range speakersLower {
		if strings.HasPrefix(lower, name+":") {
			return true
		}
	}
	return false
}

// voiceForLine resolves the voice for the line's speaker by case-insensitive
// prefix match against the assignment map.
func voiceForLine(line string, voices map[string]speech.Voice) (speech.Voice, bool) {
	lower := strings.ToLower(line)
	for name, voice := range voices {
		if strings.HasPrefix(lower, name+":") {
			return voice, true
		}
	}
	return speech.Voice{}, false
}

// stripSpeakerLabel removes the leading "Name: " label.
func stripSpeakerLabel(line string) string {
	return speakerLabelRe.ReplaceAllString(line, "")
}
