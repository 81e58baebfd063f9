// ABOUTME: Live validation of embedding provider settings.
// ABOUTME: Builds the provider and embeds a probe text to prove it answers.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/2389-research/bookrec/internal/embeddings"
)

const validateTimeout = 30 * time.Second

// ValidateProvider builds the configured provider and runs one embedding.
// The context allows cancellation when the user quits during validation.
func ValidateProvider(ctx context.Context, s Settings) error {
	p, err := embeddings.New(embeddings.Options{
		Provider: s.Provider,
		URL:      s.URL,
		Model:    s.Model,
		APIKey:   s.APIKey,
		Timeout:  validateTimeout,
	})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	dim, err := embeddings.Warm(ctx, p)
	if err != nil {
		return fmt.Errorf("provider did not answer: %w", err)
	}
	if dim <= 0 {
		return fmt.Errorf("provider returned an empty vector")
	}
	return nil
}
