package cache

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"sjsage522/listingsync/logger"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/cespare/xxhash/v2"
)

// maxKeyLength is memcached's key limit
const maxKeyLength = 250

// MemcacheService implements CacheService using memcache
type MemcacheService struct {
	client *memcache.Client
	prefix string
}

// NewMemcacheService creates a new memcache service. Every key is stored
// under prefix.
func NewMemcacheService(serverAddr, prefix string) *MemcacheService {
	client := memcache.New(serverAddr)
	client.Timeout = 300 * time.Millisecond
	return &MemcacheService{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a value from memcache
func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(m.key(key))
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			logger.ForCache().Warn().Err(err).Str("key", key).Msg("Memcache get failed")
		}
		return nil, err
	}
	return item.Value, nil
}

// Set stores a value in memcache with an expiration time
func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	err := m.client.Set(&memcache.Item{
		Key:        m.key(key),
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
	if err != nil {
		logger.ForCache().Warn().Err(err).Str("key", key).Msg("Memcache set failed")
	}
	return err
}

// Delete removes a value from memcache
func (m *MemcacheService) Delete(key string) error {
	return m.client.Delete(m.key(key))
}

// key makes any string a legal memcache key: whitespace and control
// characters are replaced and over-long keys are shortened with a hash.
func (m *MemcacheService) key(key string) string {
	k := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return '_'
		}
		return r
	}, m.prefix+key)

	if len(k) > maxKeyLength {
		sum := strconv.FormatUint(xxhash.Sum64String(k), 16)
		k = k[:maxKeyLength-len(sum)-1] + ":" + sum
	}
	return k
}
