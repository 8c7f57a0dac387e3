package podcast

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/paperwavelabs/paperwave-core/internal/speech"
)

// fallbackVoices are known-good synthesis voices used when the catalog is
// unavailable or unusable. The last-resort assignment cycles through them by
// speaker position, so voice resolution works with zero connectivity.
var fallbackVoices = []speech.Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli"},
}

// PickNames selects total distinct display names from pool. Caller-selected
// names are kept first in their supplied order; any shortfall is drawn
// uniformly at random from the remaining pool entries.
func PickNames(total int, pool, selected []string, rng *rand.Rand) []string {
	if len(selected) > 0 {
		if len(selected) >= total {
			return append([]string(nil), selected[:total]...)
		}

		chosen := make(map[string]bool, len(selected))
		for _, name := range selected {
			chosen[name] = true
		}
		var available []string
		for _, name := range pool {
			if !chosen[name] {
				available = append(available, name)
			}
		}

		need := total - len(selected)
		if need > len(available) {
			need = len(available)
		}
		out := append([]string(nil), selected...)
		for _, idx := range rng.Perm(len(available))[:need] {
			out = append(out, available[idx])
		}
		return out
	}

	if total > len(pool) {
		total = len(pool)
	}
	out := make([]string, 0, total)
	for _, idx := range rng.Perm(len(pool))[:total] {
		out = append(out, pool[idx])
	}
	return out
}

// AssignVoices maps each speaker name (lower-cased) to a synthesis voice.
// A usable catalog yields an independent uniform random pick per speaker;
// repeats across speakers are accepted. A failed fetch degrades to the fixed
// fallback list cycled by position.
func AssignVoices(ctx context.Context, speakers []string, synth speech.Synthesizer, rng *rand.Rand, logger *slog.Logger) map[string]speech.Voice {
	catalog, err := synth.Voices(ctx)
	if err != nil {
		logger.Warn("voice catalog unavailable, using fallback voices", slog.String("error", err.Error()))
		return cycleFallback(speakers)
	}

	var usable []speech.Voice
	for _, v := range catalog {
		if v.ID != "" && v.Name != "" {
			usable = append(usable, v)
		}
	}
	if len(usable) == 0 {
		usable = fallbackVoices
	}

	assignment := make(map[string]speech.Voice, len(speakers))
	for _, name := range speakers {
		assignment[strings.ToLower(name)] = usable[rng.Intn(len(usable))]
	}
	return assignment
}

func cycleFallback(speakers []string) map[string]speech.Voice {
	assignment := make(map[string]speech.Voice, len(speakers))
	for i, name := range speakers {
		assignment[strings.ToLower(name)] = fallbackVoices[i%len(fallbackVoices)]
	}
	return assignment
}
