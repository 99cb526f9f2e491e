package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls  int
	vector []float32
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	return e.vector, nil
}

func (e *countingEmbedder) Dimension() int {
	return len(e.vector)
}

func TestCachedEmbedder_SecondCallHitsCache(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{0.1, 0.2, 0.3}}

	cached, err := NewCachedEmbedder(inner, time.Minute)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()

	first, err := cached.Embed(ctx, "今日は散歩をした")
	require.NoError(t, err)
	assert.Equal(t, inner.vector, first)
	assert.Equal(t, 1, inner.calls)

	// ristrettoの非同期書き込みを待つ
	cached.Wait()

	second, err := cached.Embed(ctx, "今日は散歩をした")
	require.NoError(t, err)
	assert.Equal(t, inner.vector, second)
	assert.Equal(t, 1, inner.calls, "cached query must not re-embed")
}

func TestCachedEmbedder_DifferentQueriesEmbedSeparately(t *testing.T) {
	inner := &countingEmbedder{vector: []float32{1, 2, 3}}

	cached, err := NewCachedEmbedder(inner, time.Minute)
	require.NoError(t, err)
	defer cached.Close()

	ctx := context.Background()

	_, err = cached.Embed(ctx, "query a")
	require.NoError(t, err)
	cached.Wait()

	_, err = cached.Embed(ctx, "query b")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedder_DimensionDelegatesToInner(t *testing.T) {
	inner := &countingEmbedder{vector: make([]float32, 768)}

	cached, err := NewCachedEmbedder(inner, time.Minute)
	require.NoError(t, err)
	defer cached.Close()

	assert.Equal(t, 768, cached.Dimension())
}
