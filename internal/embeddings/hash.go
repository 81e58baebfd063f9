// ABOUTME: Local feature-hashing embedder that needs no model download or network.
// ABOUTME: Maps word tokens into signed hash buckets and L2-normalizes the result.
package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimension is the vector length of a HashEmbedder built with dim <= 0.
const DefaultHashDimension = 1024

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "her": {}, "his": {}, "i": {}, "in": {}, "is": {}, "it": {},
	"its": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "with": {}, "you": {}, "about": {},
}

// HashEmbedder is a deterministic bag-of-words embedder. Texts sharing
// vocabulary get similar vectors; it has no notion of synonyms.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hash embedder with the given dimension.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashEmbedder{dim: dim}
}

// Embed implements Embedder. Texts without any tokens map to the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	acc := make([]float64, e.dim)
	for _, tok := range Tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		sign := 1.0
		if sum>>63 == 1 {
			sign = -1.0
		}
		acc[sum%uint64(e.dim)] += sign
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	vec := make([]float32, e.dim)
	if norm == 0 {
		return vec
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// Model implements Embedder.
func (e *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

// Tokenize lowercases text, splits on anything that is not a letter or digit,
// drops stop words and single characters, and strips a plural "s".
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		tokens = append(tokens, f)
	}
	return tokens
}
