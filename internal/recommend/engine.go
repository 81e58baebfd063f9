// ABOUTME: Ranking engine holding the published index behind an init barrier.
// ABOUTME: Uninitialized until Load, then ready for lock-free concurrent ranking.
package recommend

import (
	"errors"
	"sync/atomic"

	"github.com/2389-research/bookrec/internal/models"
)

var (
	// ErrNotReady is returned by Rank before an index has been loaded.
	ErrNotReady = errors.New("recommend: engine has no index loaded")
	// ErrAlreadyReady is returned by a second Load.
	ErrAlreadyReady = errors.New("recommend: engine already has an index")
)

// Engine publishes an Index exactly once. The zero value is uninitialized.
type Engine struct {
	index atomic.Pointer[Index]
}

// NewEngine returns an uninitialized engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Load publishes ix and moves the engine to ready.
func (e *Engine) Load(ix *Index) error {
	if ix == nil {
		return errors.New("recommend: cannot load a nil index")
	}
	if !e.index.CompareAndSwap(nil, ix) {
		return ErrAlreadyReady
	}
	return nil
}

// Ready reports whether an index has been loaded.
func (e *Engine) Ready() bool {
	return e.index.Load() != nil
}

// Index returns the loaded index, or nil before Load.
func (e *Engine) Index() *Index {
	return e.index.Load()
}

// Rank delegates to the loaded index.
func (e *Engine) Rank(query []float32, k int, match func(models.Book) bool) ([]models.Recommendation, error) {
	ix := e.index.Load()
	if ix == nil {
		return nil, ErrNotReady
	}
	return ix.Rank(query, k, match)
}
