package gen

import (
	"context"
	"errors"
)

// ErrOversized reports that the generation service rejected a prompt for
// exceeding its input size limit. Callers recover by splitting the input.
var ErrOversized = errors.New("prompt exceeds generation service input limit")

// Generator is the contract for producing text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerateFunc adapts a plain function to the Generator interface.
type GenerateFunc func(ctx context.Context, prompt string) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
