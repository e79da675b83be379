package port

import "context"

type TextGenerator interface {
	// GenerateFromPrompt asks model to answer prompt.
	GenerateFromPrompt(ctx context.Context, model, prompt string) (string, error)
}
