//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"clearledger/internal/registry/cache"
	"clearledger/pkg/platform/sentinel"
	"clearledger/pkg/testutil/containers"
)

type CacheRedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
	ctx   context.Context
}

func TestCacheRedisSuite(t *testing.T) {
	suite.Run(t, new(CacheRedisSuite))
}

func (s *CacheRedisSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CacheRedisSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
	s.cache = cache.New(s.redis.Client, time.Second)
}

func (s *CacheRedisSuite) TestMissThenHit() {
	_, err := s.cache.Get(s.ctx, "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	status := cache.Status{Account: "alice", Compliant: true, Level: 2}
	s.Require().NoError(s.cache.Set(s.ctx, "alice", status))

	got, err := s.cache.Get(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(status, got)
}

func (s *CacheRedisSuite) TestEntriesExpire() {
	s.Require().NoError(s.cache.Set(s.ctx, "alice",
		cache.Status{Account: "alice", Compliant: true}))

	s.Eventually(func() bool {
		_, err := s.cache.Get(s.ctx, "alice")
		return err != nil
	}, 3*time.Second, 100*time.Millisecond)
}

func (s *CacheRedisSuite) TestInvalidate() {
	s.Require().NoError(s.cache.Set(s.ctx, "alice",
		cache.Status{Account: "alice", Compliant: true}))
	s.Require().NoError(s.cache.Invalidate(s.ctx, "alice"))

	_, err := s.cache.Get(s.ctx, "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Run("invalidating a miss is fine", func() {
		s.Require().NoError(s.cache.Invalidate(s.ctx, "ghost"))
	})
}

func (s *CacheRedisSuite) TestNilCacheMissesEverything() {
	var nilCache *cache.Cache
	_, err := nilCache.Get(s.ctx, "alice")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
	s.Require().NoError(nilCache.Set(s.ctx, "alice", cache.Status{}))
	s.Require().NoError(nilCache.Invalidate(s.ctx, "alice"))
}
