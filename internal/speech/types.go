package speech

import "context"

// Voice describes one entry in a synthesis voice catalog.
type Voice struct {
	ID   string `json:"voice_id"`
	Name string `json:"name"`
}

// Synthesizer is the contract for turning text into audio.
type Synthesizer interface {
	// Voices fetches the available voice catalog.
	Voices(ctx context.Context) ([]Voice, error)
	// Synthesize renders text as encoded audio using the given voice.
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}
