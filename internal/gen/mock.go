package gen

import (
	"context"
	"strings"
	"time"
)

// MockGenerator returns a deterministic completion without network access.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator { return &MockGenerator{} }

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(20 * time.Millisecond):
	}
	trimmed := strings.TrimSpace(prompt)
	if len(trimmed) > 80 {
		trimmed = trimmed[:80]
	}
	return "[mock completion for " + trimmed + "]", nil
}
