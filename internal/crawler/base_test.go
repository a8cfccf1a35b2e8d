package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "sjsage522/listingsync/pkg/errors"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase(url string, cacheSvc *MockCacheService) *BaseCrawler {
	return &BaseCrawler{
		URL:       url,
		CacheKey:  "test_rate_limited",
		CacheSvc:  cacheSvc,
		BlockTime: time.Minute,
		Provider:  "Test",
		limiter:   newLimiter(0),
	}
}

func TestFetchWithCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	c := newTestBase(server.URL, NewMockCacheService())
	body, err := c.fetchWithCache(context.Background(), server.URL)
	require.NoError(t, err)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ok")
}

func TestFetchWithCacheBlocked(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	mockCache.Set("test_rate_limited", []byte("60"), time.Minute)

	c := newTestBase(server.URL, mockCache)
	_, err := c.fetchWithCache(context.Background(), server.URL)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimit))
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "blocked source is not requested")
}

func TestFetchWithCacheSetsBlock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	mockCache := NewMockCacheService()
	c := newTestBase(server.URL, mockCache)

	_, err := c.fetchWithCache(context.Background(), server.URL)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimit))

	_, cacheErr := mockCache.Get("test_rate_limited")
	assert.NoError(t, cacheErr, "block flag is set")
}

func TestFetchWithCacheNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestBase(server.URL, NewMockCacheService())
	_, err := c.fetchWithCache(context.Background(), server.URL)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.False(t, errors.Is(err, apperrors.ErrRateLimit))
}

func TestFetchWithCacheNilCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := &BaseCrawler{URL: server.URL, Provider: "Test", BlockTime: time.Minute}
	_, err := c.fetchWithCache(context.Background(), server.URL)
	assert.True(t, errors.Is(err, apperrors.ErrRateLimit))
}

func TestResolveURL(t *testing.T) {
	c := BaseCrawler{URL: "https://vancouver.craigslist.org/search/apa", BaseURL: "https://vancouver.craigslist.org"}

	assert.Equal(t, "https://vancouver.craigslist.org/bnc/apa/d/1.html", c.ResolveURL("/bnc/apa/d/1.html"))
	assert.Equal(t, "https://other.example/x", c.ResolveURL("https://other.example/x"))
	assert.Equal(t, "", c.ResolveURL(""))

	noBase := BaseCrawler{URL: "https://www.kijiji.ca/b-apartments-condos/c37"}
	assert.Equal(t, "https://www.kijiji.ca/v-1", noBase.ResolveURL("/v-1"))
}

func TestFirstAttr(t *testing.T) {
	html := `<img class="lazy" src="data:image/gif;base64,R0lGOD" data-src=" https://media.kijiji.ca/1.jpg ">
		<img class="plain" src="https://media.kijiji.ca/2.jpg" data-src="">
		<img class="none">`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	assert.Equal(t, "https://media.kijiji.ca/1.jpg", FirstAttr(doc.Find("img.lazy"), "data-src", "src"))
	assert.Equal(t, "https://media.kijiji.ca/1.jpg", FirstAttr(doc.Find("img.lazy"), "src", "data-src"), "inline data URIs are skipped")
	assert.Equal(t, "https://media.kijiji.ca/2.jpg", FirstAttr(doc.Find("img.plain"), "data-src", "src"))
	assert.Equal(t, "", FirstAttr(doc.Find("img.none"), "data-src", "src"))
	assert.Equal(t, "", FirstAttr(doc.Find("img.missing"), "src"))
}

func TestGetName(t *testing.T) {
	c := BaseCrawler{Provider: "Kijiji"}
	assert.Equal(t, "KijijiCrawler", c.GetName())
	assert.Equal(t, "Kijiji", c.GetProvider())
}
