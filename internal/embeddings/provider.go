// ABOUTME: Builds a configured embedding provider stack from options.
// ABOUTME: Composes the base provider with rate limiting, breaker, serialization, and cache.
package embeddings

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Provider names accepted by New.
const (
	ProviderHash   = "hash"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Options selects and tunes a provider.
type Options struct {
	Provider          string
	URL               string
	Model             string
	APIKey            string
	Dimension         int
	Timeout           time.Duration
	Serialize         bool
	RequestsPerSecond float64
	BreakerFailures   uint32
	Redis             *redis.Client
	CacheTTL          time.Duration
	Logger            *logrus.Logger
}

// Provider is a composed Embedder that owns background resources.
type Provider struct {
	Embedder
	closers []io.Closer
}

// Close releases worker goroutines held by the stack.
func (p *Provider) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the provider described by opts. Wrappers are layered inside-out:
// rate limit, circuit breaker, serialization, then the query cache, so cache
// hits skip every other layer.
func New(opts Options) (*Provider, error) {
	var base Embedder
	switch opts.Provider {
	case "", ProviderHash:
		base = NewHashEmbedder(opts.Dimension)
	case ProviderOllama:
		base = NewOllamaEmbedder(opts.URL, opts.Model, opts.Dimension, opts.Timeout)
	case ProviderOpenAI:
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		base = NewOpenAIEmbedder(opts.URL, opts.APIKey, opts.Model, opts.Dimension, opts.Timeout)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", opts.Provider)
	}

	p := &Provider{Embedder: base}
	remote := opts.Provider == ProviderOllama || opts.Provider == ProviderOpenAI

	if opts.RequestsPerSecond > 0 {
		p.Embedder = NewRateLimited(p.Embedder, opts.RequestsPerSecond, 1)
	}
	if remote {
		p.Embedder = NewBreaker(p.Embedder, opts.BreakerFailures, opts.Timeout)
	}
	if opts.Serialize {
		s := NewSerialized(p.Embedder, 64)
		p.closers = append(p.closers, s)
		p.Embedder = s
	}
	if opts.Redis != nil {
		p.Embedder = NewCached(p.Embedder, opts.Redis, opts.CacheTTL, opts.Logger)
	}
	return p, nil
}
