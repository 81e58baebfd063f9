// ABOUTME: Tests for the serialized, circuit breaker, rate limited, and cached wrappers.
// ABOUTME: Uses counting test embedders and redismock for the Redis cache.
package embeddings

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSerializedRunsOneAtATime(t *testing.T) {
	inner := newCountingEmbedder(16)
	s := NewSerialized(inner, 8)
	defer func() { _ = s.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Embed(context.Background(), []string{"concurrent query"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	calls, maxSeen := inner.stats()
	assert.Equal(t, 20, calls)
	assert.Equal(t, 1, maxSeen, "inner embedder must never run concurrently")
}

func TestSerializedCancelWhileQueued(t *testing.T) {
	inner := newCountingEmbedder(4)
	inner.block = make(chan struct{})
	inner.entered = make(chan struct{}, 1)
	s := NewSerialized(inner, 0)
	defer func() { _ = s.Close() }()

	// Occupy the worker.
	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Embed(context.Background(), []string{"slow"})
		firstDone <- err
	}()
	<-inner.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Embed(ctx, []string{"impatient"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(inner.block)
	require.NoError(t, <-firstDone)
}

func TestSerializedClosed(t *testing.T) {
	s := NewSerialized(NewHashEmbedder(4), 0)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSerializedEmptyInput(t *testing.T) {
	s := NewSerialized(NewHashEmbedder(4), 0)
	defer func() { _ = s.Close() }()
	_, err := s.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &failingEmbedder{err: ErrUnavailable}
	b := NewBreaker(inner, 3, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := b.Embed(context.Background(), []string{"x"})
		assert.ErrorIs(t, err, ErrUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), inner.calls.Load(), "open breaker must not call the provider")
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	inner := &failingEmbedder{err: context.Canceled}
	b := NewBreaker(inner, 1, time.Minute)

	for i := 0; i < 5; i++ {
		_, _ = b.Embed(context.Background(), []string{"x"})
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerPassesThrough(t *testing.T) {
	b := NewBreaker(NewHashEmbedder(8), 2, time.Second)
	vecs, err := b.Embed(context.Background(), []string{"a book", "another book"})
	require.NoError(t, err)
	assert.Len(t, vecs, 2)
	assert.Equal(t, 8, b.Dimension())
	assert.Equal(t, "hash-8", b.Model())
}

func TestRateLimitedWaits(t *testing.T) {
	r := NewRateLimited(NewHashEmbedder(4), 1, 1)

	_, err := r.Embed(context.Background(), []string{"first"})
	require.NoError(t, err)

	// The bucket is empty now; a short deadline cannot be met.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Embed(ctx, []string{"second"})
	assert.Error(t, err)
}

func TestCachedMissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := NewHashEmbedder(8)
	c := NewCached(inner, db, time.Hour, quietLogger())

	want, _ := inner.Embed(context.Background(), []string{"mystery"})
	key := CacheKey(inner.Model(), "mystery")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, EncodeVector(want[0]), time.Hour).SetVal("OK")

	got, err := c.Embed(context.Background(), []string{"mystery"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedHitSkipsProvider(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := &failingEmbedder{err: ErrUnavailable}
	c := NewCached(inner, db, time.Hour, quietLogger())

	vec := []float32{0.6, 0.8}
	key := CacheKey(inner.Model(), "cached text")
	mock.ExpectGet(key).SetVal(string(EncodeVector(vec)))

	got, err := c.Embed(context.Background(), []string{"cached text"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{vec}, got)
	assert.Equal(t, int32(0), inner.calls.Load())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRedisDownFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	inner := NewHashEmbedder(8)
	c := NewCached(inner, db, 0, quietLogger())

	want, _ := inner.Embed(context.Background(), []string{"query"})
	key := CacheKey(inner.Model(), "query")
	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, EncodeVector(want[0]), time.Duration(0)).SetErr(errors.New("connection refused"))

	got, err := c.Embed(context.Background(), []string{"query"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCachedBatchBypassesRedis(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCached(NewHashEmbedder(8), db, time.Hour, quietLogger())

	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, vecs, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedCallerCancelLeavesOthersRunning(t *testing.T) {
	db, _ := redismock.NewClientMock()
	inner := newCountingEmbedder(8)
	inner.block = make(chan struct{})
	inner.entered = make(chan struct{}, 2)
	c := NewCached(inner, db, time.Hour, quietLogger())

	ctxA, cancelA := context.WithCancel(context.Background())
	type result struct {
		vecs [][]float32
		err  error
	}
	doneA := make(chan result, 1)
	go func() {
		vecs, err := c.Embed(ctxA, []string{"shared query"})
		doneA <- result{vecs, err}
	}()
	<-inner.entered

	doneB := make(chan result, 1)
	go func() {
		vecs, err := c.Embed(context.Background(), []string{"shared query"})
		doneB <- result{vecs, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case r := <-doneA:
		assert.ErrorIs(t, r.err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(inner.block)
	select {
	case r := <-doneB:
		require.NoError(t, r.err)
		require.Len(t, r.vecs, 1)
		assert.Len(t, r.vecs[0], 8)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2.25, 0}
	got, ok := DecodeVector(EncodeVector(v))
	require.True(t, ok)
	assert.Equal(t, v, got)

	_, ok = DecodeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}

func TestNewProviderStack(t *testing.T) {
	p, err := New(Options{Provider: ProviderHash, Dimension: 32, Serialize: true, RequestsPerSecond: 100})
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	vecs, err := p.Embed(context.Background(), []string{"a fantasy novel"})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 32)
	assert.Equal(t, "hash-32", p.Model())
}

func TestNewProviderErrors(t *testing.T) {
	_, err := New(Options{Provider: "word2vec"})
	assert.Error(t, err)

	_, err = New(Options{Provider: ProviderOpenAI})
	assert.Error(t, err, "openai without API key must fail")
}

func TestNewProviderOllamaIsBreakerWrapped(t *testing.T) {
	p, err := New(Options{Provider: ProviderOllama, URL: "http://127.0.0.1:1", BreakerFailures: 1, Timeout: time.Second})
	require.NoError(t, err)
	_, ok := p.Embedder.(*Breaker)
	assert.True(t, ok, "remote providers are wrapped in a circuit breaker")
}
