// ABOUTME: OpenAI embeddings provider built on the official openai-go SDK.
// ABOUTME: Sends whole batches in one request and reorders results by index.
package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// DefaultOpenAIModel is the embedding model used when none is configured.
const DefaultOpenAIModel = "text-embedding-3-small"

// OpenAIEmbedder generates embeddings with the OpenAI embeddings API or any
// server that speaks the same protocol.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	requestDim int
	dim        atomic.Int64
}

// NewOpenAIEmbedder creates an OpenAI embedder. baseURL may be empty for the
// public API. When dim > 0 it is sent as the requested output dimension.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dim int, timeout time.Duration) *OpenAIEmbedder {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(2),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	e := &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		requestDim: dim,
	}
	e.dim.Store(int64(dim))
	return e
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.requestDim > 0 {
		params.Dimensions = openai.Int(int64(e.requestDim))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: openai embeddings: %w", ErrUnavailable, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: openai returned %d embeddings for %d texts", ErrUnavailable, len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) || out[d.Index] != nil {
			return nil, fmt.Errorf("%w: openai returned invalid index %d", ErrUnavailable, d.Index)
		}
		out[d.Index] = toFloat32(d.Embedding)
	}

	if err := checkVectors(out, len(texts), e.Dimension()); err != nil {
		return nil, err
	}
	e.dim.CompareAndSwap(0, int64(len(out[0])))
	return out, nil
}

// Dimension implements Embedder.
func (e *OpenAIEmbedder) Dimension() int {
	return int(e.dim.Load())
}

// Model implements Embedder.
func (e *OpenAIEmbedder) Model() string {
	return "openai/" + e.model
}
