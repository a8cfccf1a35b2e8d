package publisher

import (
	"context"
	"math/rand"
	"strconv"

	"sjsage522/listingsync/logger"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Publish appends the message to one of the streams.
// With streamCount 3 the streams are prefix:0 .. prefix:2.
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	stream := p.streamName(rand.Intn(p.streamCount))

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"event":   key,
			"payload": string(message),
		},
	}).Err()
	if err != nil {
		logger.ForPublisher().WithError(err).Warn().
			Str("stream", stream).
			Str("event", key).
			Msg("XADD failed")
	}
	return err
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}

	for i := 0; i < p.streamCount; i++ {
		err := p.client.XTrimMaxLenApprox(ctx, p.streamName(i), int64(p.streamMaxLength), 0).Err()
		if err != nil {
			logger.ForPublisher().WithError(err).Warn().
				Str("stream", p.streamName(i)).
				Msg("XTRIM failed")
			return err
		}
	}

	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) streamName(i int) string {
	return p.streamPrefix + ":" + strconv.Itoa(i)
}
