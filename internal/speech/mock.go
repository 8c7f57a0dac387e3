package speech

import (
	"context"
	"time"
)

// MockSynthesizer produces deterministic byte segments without network access.
type MockSynthesizer struct{}

func NewMockSynthesizer() *MockSynthesizer { return &MockSynthesizer{} }

func (m *MockSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "mock-aria", Name: "Aria"},
		{ID: "mock-sol", Name: "Sol"},
	}, nil
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
	}
	return []byte(voiceID + "|" + text + "\n"), nil
}
