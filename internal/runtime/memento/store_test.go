package memento

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causeway-lang/causeway/internal/metamodel/schema"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/cache"
)

type draft struct {
	Subject string
	Lines   []string
}

type other struct{}

func specOf[T any](t *testing.T, name string) *spec.ObjectSpecification {
	t.Helper()
	s, err := schema.For[T](name, schema.SortViewModel).Build()
	require.NoError(t, err)
	return spec.New(s, nil)
}

func TestInstanceStoreExpiry(t *testing.T) {
	ctx := context.Background()
	drafts := specOf[draft](t, "mail.Draft")
	s := NewInstanceStore(time.Minute, time.Hour)
	defer s.Close()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	d := &draft{Subject: "hi"}
	require.NoError(t, s.Put(ctx, "k", drafts, d))

	now = now.Add(50 * time.Second)
	got, err := s.Get(ctx, "k", drafts)
	require.NoError(t, err)
	assert.Same(t, d, got)

	// the read restarted the ttl
	now = now.Add(50 * time.Second)
	_, err = s.Get(ctx, "k", drafts)
	require.NoError(t, err)

	_, err = s.Get(ctx, "k", specOf[other](t, "mail.Other"))
	assert.ErrorIs(t, err, ErrUnknownKey)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "k", drafts)
	assert.ErrorIs(t, err, ErrUnknownKey)
	assert.Equal(t, 1, s.Evict())
	assert.Equal(t, 0, s.Len())
}

func TestCacheStoreOverRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	c := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cache.DefaultConfig())
	defer c.Close()

	drafts := specOf[draft](t, "mail.Draft")
	s := NewCacheStore(c, time.Minute)
	require.NoError(t, s.Put(ctx, "k", drafts, &draft{Subject: "hi", Lines: []string{"a", "b"}}))
	assert.True(t, mr.Exists("causeway:memento:k"))

	got, err := s.Get(ctx, "k", drafts)
	require.NoError(t, err)
	assert.Equal(t, &draft{Subject: "hi", Lines: []string{"a", "b"}}, got)

	_, err = s.Get(ctx, "k", specOf[other](t, "mail.Other"))
	assert.ErrorIs(t, err, ErrUnknownKey)

	mr.FastForward(2 * time.Minute)
	_, err = s.Get(ctx, "k", drafts)
	assert.ErrorIs(t, err, ErrUnknownKey)

	require.NoError(t, mr.Set("causeway:memento:bad", "{"))
	_, err = s.Get(ctx, "bad", drafts)
	assert.ErrorContains(t, err, "corrupt memento entry")
}
