package crawler

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// pageFetcher serves canned pages by URL and records requested URLs
type pageFetcher struct {
	pages     map[string]string
	failures  map[string]error
	requested []string
}

func (p *pageFetcher) fetch(_ context.Context, url string) (io.Reader, error) {
	p.requested = append(p.requested, url)
	if err, ok := p.failures[url]; ok {
		return nil, err
	}
	if page, ok := p.pages[url]; ok {
		return strings.NewReader(page), nil
	}
	return nil, fmt.Errorf("unexpected url %s", url)
}
