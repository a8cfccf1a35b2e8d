package translate

import (
	"context"
	"strconv"
	"time"

	"sjsage522/listingsync/logger"
	"sjsage522/listingsync/services/cache"

	"github.com/cespare/xxhash/v2"
)

// CachedTranslator keeps successful translations in a CacheService
type CachedTranslator struct {
	next  Translator
	cache cache.CacheService
	ttl   time.Duration
}

// NewCachedTranslator wraps next with a cache
func NewCachedTranslator(next Translator, cacheSvc cache.CacheService, ttl time.Duration) *CachedTranslator {
	return &CachedTranslator{
		next:  next,
		cache: cacheSvc,
		ttl:   ttl,
	}
}

// Translate implements Translator
func (c *CachedTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	key := cacheKey(text, targetLang)

	if cached, err := c.cache.Get(key); err == nil && len(cached) > 0 {
		return string(cached), nil
	}

	translated, err := c.next.Translate(ctx, text, targetLang)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(key, []byte(translated), c.ttl); err != nil {
		logger.ForTranslator().Debug().Err(err).Msg("Failed to cache translation")
	}
	return translated, nil
}

func cacheKey(text, targetLang string) string {
	return "tr:" + targetLang + ":" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}
