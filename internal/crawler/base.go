package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"sjsage522/listingsync/helpers"
	"sjsage522/listingsync/logger"
	apperrors "sjsage522/listingsync/pkg/errors"
	"sjsage522/listingsync/services/cache"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// BaseCrawler provides common functionality for all crawlers
type BaseCrawler struct {
	URL       string
	BaseURL   string
	CacheKey  string
	CacheSvc  cache.CacheService
	BlockTime time.Duration
	Provider  string

	// limiter spaces consecutive requests to the same source
	limiter *rate.Limiter
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// fetchWithCache fetches a URL honoring the rate-limit block flag and the
// inter-request delay
func (c *BaseCrawler) fetchWithCache(ctx context.Context, url string) (io.Reader, error) {
	if c.CacheSvc != nil && c.CacheKey != "" {
		if _, err := c.CacheSvc.Get(c.CacheKey); err == nil {
			return nil, apperrors.NewRateLimit(c.Provider, c.BlockTime)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.NewNetwork(c.Provider, "request delay interrupted", err)
		}
	}

	utf8Body, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		if errors.Is(err, helpers.ErrRateLimited) {
			c.block()
			return nil, apperrors.New(apperrors.ErrorTypeRateLimit, c.Provider, "source answered rate limited", err)
		}
		return nil, apperrors.NewNetwork(c.Provider, "fetch "+url, err)
	}

	return utf8Body, nil
}

// block stops requests to this source until BlockTime has passed
func (c *BaseCrawler) block() {
	if c.CacheSvc == nil || c.CacheKey == "" || c.BlockTime <= 0 {
		return
	}
	value := []byte(fmt.Sprintf("%d", c.BlockTime/time.Second))
	if err := c.CacheSvc.Set(c.CacheKey, value, c.BlockTime); err != nil {
		logger.ForCrawler(c.GetName()).Warn().Err(err).Msg("Failed to set rate limit block")
		return
	}
	logger.ForCrawler(c.GetName()).Warn().
		Dur("block_time", c.BlockTime).
		Msg("Source rate limited, blocking further requests")
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, apperrors.NewParsing(c.Provider, "parse HTML", err)
	}
	return doc, nil
}

// ResolveURL resolves href against the crawler's base URL
func (c *BaseCrawler) ResolveURL(href string) string {
	base := c.BaseURL
	if base == "" {
		base = c.URL
	}
	return helpers.ResolveURL(base, href)
}

// GetName returns the crawler's name for logging
func (c *BaseCrawler) GetName() string {
	return c.Provider + "Crawler"
}

// GetProvider returns the source name
func (c *BaseCrawler) GetProvider() string {
	return c.Provider
}

// FirstAttr returns the first usable value among attrs on sel. Inline
// data: URIs are lazy-loading placeholders and are skipped.
func FirstAttr(sel *goquery.Selection, attrs ...string) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	for _, attr := range attrs {
		value, ok := sel.Attr(attr)
		value = strings.TrimSpace(value)
		if !ok || value == "" || strings.HasPrefix(value, "data:") {
			continue
		}
		return value
	}
	return ""
}
