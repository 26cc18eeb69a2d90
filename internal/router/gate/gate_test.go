package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-router/internal/common/logger"
)

type fakeClassifier struct {
	verdict bool
	err     error
	calls   int
}

func (f *fakeClassifier) ClassifyYesNo(ctx context.Context, prompt string) (bool, error) {
	f.calls++
	return f.verdict, f.err
}

func TestInDomainCachesVerdict(t *testing.T) {
	cls := &fakeClassifier{verdict: true}
	g := New(cls, NewLRUCache(10, time.Minute), logger.NewTestLogger(t))

	assert.True(t, g.InDomain(context.Background(), "How do I open an account?"))
	assert.True(t, g.InDomain(context.Background(), "how do i open an account?  "))
	assert.Equal(t, 1, cls.calls, "second lookup served from cache after key normalization")
}

func TestInDomainNegativeVerdict(t *testing.T) {
	cls := &fakeClassifier{verdict: false}
	g := New(cls, NewLRUCache(10, time.Minute), logger.NewTestLogger(t))

	assert.False(t, g.InDomain(context.Background(), "best pizza in town"))
	assert.False(t, g.InDomain(context.Background(), "best pizza in town"))
	assert.Equal(t, 1, cls.calls)
}

func TestInDomainFailsOpen(t *testing.T) {
	cls := &fakeClassifier{err: errors.New("upstream down")}
	g := New(cls, NewLRUCache(10, time.Minute), logger.NewTestLogger(t))

	assert.True(t, g.InDomain(context.Background(), "anything at all"))

	// Failures are not cached: the classifier is retried next time.
	assert.True(t, g.InDomain(context.Background(), "anything at all"))
	assert.Equal(t, 2, cls.calls)
}

func TestInDomainWithoutCache(t *testing.T) {
	cls := &fakeClassifier{verdict: true}
	g := New(cls, nil, logger.NewTestLogger(t))

	assert.True(t, g.InDomain(context.Background(), "loan interest rates"))
	assert.True(t, g.InDomain(context.Background(), "loan interest rates"))
	assert.Equal(t, 2, cls.calls)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisCache(client, time.Minute, logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := cache.Get(ctx, "unknown")
	assert.False(t, ok)

	cache.Set(ctx, "banking query", true)
	verdict, ok := cache.Get(ctx, "banking query")
	assert.True(t, ok)
	assert.True(t, verdict)

	cache.Set(ctx, "pizza query", false)
	verdict, ok = cache.Get(ctx, "pizza query")
	assert.True(t, ok)
	assert.False(t, verdict)

	mr.FastForward(2 * time.Minute)
	_, ok = cache.Get(ctx, "banking query")
	assert.False(t, ok, "entry expired after TTL")
}
