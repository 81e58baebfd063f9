// ABOUTME: HTTP client for Ollama's batch embedding endpoint.
// ABOUTME: Splits large batches into chunks fetched concurrently with bounded fan-out.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultOllamaURL is the default local Ollama endpoint.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is a small sentence embedding model.
	DefaultOllamaModel = "all-minilm"

	ollamaChunkSize   = 32
	ollamaParallelism = 4
)

// OllamaEmbedder generates embeddings with a local or remote Ollama server.
type OllamaEmbedder struct {
	apiURL string
	model  string
	dim    atomic.Int64
	client *http.Client
}

// NewOllamaEmbedder creates an Ollama client. dim may be 0, in which case it
// is learned from the first response.
func NewOllamaEmbedder(apiURL, model string, dim int, timeout time.Duration) *OllamaEmbedder {
	if apiURL == "" {
		apiURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &OllamaEmbedder{
		apiURL: strings.TrimRight(apiURL, "/"),
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
	e.dim.Store(int64(dim))
	return e
}

// ollamaEmbedRequest is the JSON body sent to POST /api/embed.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the JSON body returned by POST /api/embed.
type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ollamaParallelism)
	for start := 0; start < len(texts); start += ollamaChunkSize {
		end := min(start+ollamaChunkSize, len(texts))
		g.Go(func() error {
			vecs, err := e.embedChunk(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkVectors(out, len(texts), e.Dimension()); err != nil {
		return nil, err
	}
	e.dim.CompareAndSwap(0, int64(len(out[0])))
	return out, nil
}

func (e *OllamaEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.apiURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama request failed: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("%w: ollama returned %d: %s", ErrUnavailable, resp.StatusCode, string(respBody))
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrUnavailable, err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d texts", ErrUnavailable, len(embedResp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(embedResp.Embeddings))
	for i, v := range embedResp.Embeddings {
		vecs[i] = toFloat32(v)
	}
	return vecs, nil
}

// Dimension implements Embedder.
func (e *OllamaEmbedder) Dimension() int {
	return int(e.dim.Load())
}

// Model implements Embedder.
func (e *OllamaEmbedder) Model() string {
	return "ollama/" + e.model
}
