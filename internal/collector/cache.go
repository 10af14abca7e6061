package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"StockScope/internal/model"
)

// CachedProvider memoizes successful responses of another provider for a TTL.
// Failures are never cached.
type CachedProvider struct {
	next  Provider
	cache *cache.Cache
}

// NewCachedProvider wraps next. A ttl of zero or less disables caching.
func NewCachedProvider(next Provider, ttl time.Duration) Provider {
	if ttl <= 0 {
		return next
	}
	return &CachedProvider{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedProvider) Name() string { return c.next.Name() + "+cache" }

func (c *CachedProvider) lookup(key string) (any, bool) {
	v, ok := c.cache.Get(key)
	if ok {
		log.WithFields(log.Fields{"provider": c.next.Name(), "key": key}).Debug("cache hit")
	}
	return v, ok
}

func (c *CachedProvider) FetchHistory(ctx context.Context, symbol string, period Period) (model.PriceSeries, error) {
	key := fmt.Sprintf("history:%s:%s", symbol, period)
	if v, ok := c.lookup(key); ok {
		return v.(model.PriceSeries), nil
	}
	s, err := c.next.FetchHistory(ctx, symbol, period)
	if err != nil {
		return s, err
	}
	c.cache.SetDefault(key, s)
	return s, nil
}

func (c *CachedProvider) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	key := "fundamentals:" + symbol
	if v, ok := c.lookup(key); ok {
		return v.(*model.Fundamentals), nil
	}
	f, err := c.next.FetchFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, f)
	return f, nil
}

func (c *CachedProvider) FetchStatements(ctx context.Context, symbol string) (*model.Statements, error) {
	key := "statements:" + symbol
	if v, ok := c.lookup(key); ok {
		return v.(*model.Statements), nil
	}
	st, err := c.next.FetchStatements(ctx, symbol)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, st)
	return st, nil
}

// Flush drops every cached entry.
func (c *CachedProvider) Flush() { c.cache.Flush() }
