package podcast

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/paperwavelabs/paperwave-core/internal/gen"
)

// averageWordsPerMinute converts the requested episode length into a target
// word count for the script prompt.
const averageWordsPerMinute = 150

// GenerateScript produces a labeled, turn-taking dialogue transcript from a
// summary and speaker roster. One generation call, no retry: a script is
// load-bearing for every later stage, so failure here is fatal to the task.
func GenerateScript(ctx context.Context, generate gen.GenerateFunc, show, summary string, speakers []string, hosts, guests, minutes int) (string, error) {
	script, err := generate(ctx, BuildScriptPrompt(show, summary, speakers, hosts, guests, minutes))
	if err != nil {
		return "", fmt.Errorf("generate script: %w", err)
	}
	script = strings.TrimSpace(script)
	if script == "" {
		return "", errors.New("generation service returned an empty script")
	}
	return script, nil
}

// BuildScriptPrompt embeds the summary, the roster with hosts introduced
// first, a length instruction keyed by episode-length band, and a target
// word count.
func BuildScriptPrompt(show, summary string, speakers []string, hosts, guests, minutes int) string {
	hostNames := speakers
	if hosts < len(speakers) {
		hostNames = speakers[:hosts]
	}
	var guestNames []string
	if guests > 0 && len(speakers) > hosts {
		end := hosts + guests
		if end > len(speakers) {
			end = len(speakers)
		}
		guestNames = speakers[hosts:end]
	}

	roster := strings.Join(hostNames, ", ")
	if len(guestNames) > 0 {
		label := "guest"
		if len(guestNames) > 1 {
			label = "guests"
		}
		roster += " with " + label + " " + strings.Join(guestNames, ", ")
	}

	return fmt.Sprintf(`Generate a conversational podcast script titled '%s' with %s.
They will discuss the following research summary in a natural, engaging way.

Research Summary:
%s

Guidelines:
- Start with a casual intro by one of the hosts (e.g. "Hey everyone, welcome to %s...")
- Alternate dialogue lines between speakers (e.g. "%s:")
- Keep it free-flowing with no visible headers like "Introduction" or "Conclusion."
- Include insightful commentary, light humor, and deeper reflections.
- %s
- Target approximately %d words total (average %d words per minute).
`, show, roster, summary, show, hostNames[0], lengthInstruction(minutes), minutes*averageWordsPerMinute, averageWordsPerMinute)
}

func lengthInstruction(minutes int) string {
	switch {
	case minutes <= 5:
		return "Keep the conversation concise and focused, suitable for a 3-5 minute podcast."
	case minutes <= 10:
		return fmt.Sprintf("Create a %d-minute conversation with good depth but not too lengthy.", minutes)
	default:
		return fmt.Sprintf("Create a comprehensive %d-minute discussion with detailed exploration of topics.", minutes)
	}
}
