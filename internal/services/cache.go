package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/plant-journal-backend/internal/logging"
	"github.com/AnshRaj112/plant-journal-backend/internal/metrics"
	"github.com/AnshRaj112/plant-journal-backend/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// TimelineCacheKey holds the full timeline as returned by GET /api/plants
	TimelineCacheKey = CacheKeyPrefix + "plants:timeline"
	// TimelineGenKey is bumped on every invalidation
	TimelineGenKey = CacheKeyPrefix + "plants:gen"
	// DefaultTimelineTTL bounds staleness if an invalidation is lost
	DefaultTimelineTTL = 5 * time.Minute
)

// TimelineCache caches the ordered list of plant entries. Get reports the
// cache generation on a miss; Set only stores when no Invalidate happened
// since that generation was read, so a slow reader cannot resurrect a stale
// timeline.
type TimelineCache interface {
	Get(ctx context.Context) (plants []models.Plant, gen int64, ok bool)
	Set(ctx context.Context, gen int64, plants []models.Plant)
	Invalidate(ctx context.Context)
}

// setIfGeneration writes the timeline only while the generation is unchanged.
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisTimelineCache stores the timeline as JSON in Redis. Errors are logged
// and treated as cache misses.
type RedisTimelineCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTimelineCache(client *redis.Client, ttl time.Duration) *RedisTimelineCache {
	if ttl <= 0 {
		ttl = DefaultTimelineTTL
	}
	return &RedisTimelineCache{client: client, ttl: ttl}
}

// noGeneration makes Set a no-op when the generation could not be read.
const noGeneration = -1

func (c *RedisTimelineCache) Get(ctx context.Context) ([]models.Plant, int64, bool) {
	vals, err := c.client.MGet(ctx, TimelineCacheKey, TimelineGenKey).Result()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache read failed")
		metrics.TimelineCacheTotal.WithLabelValues("miss").Inc()
		return nil, noGeneration, false
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache generation is corrupt")
		gen = noGeneration
	}

	raw, ok := vals[0].(string)
	if !ok {
		metrics.TimelineCacheTotal.WithLabelValues("miss").Inc()
		return nil, gen, false
	}
	var plants []models.Plant
	if err := json.Unmarshal([]byte(raw), &plants); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache entry is corrupt")
		metrics.TimelineCacheTotal.WithLabelValues("miss").Inc()
		return nil, gen, false
	}
	metrics.TimelineCacheTotal.WithLabelValues("hit").Inc()
	return plants, gen, true
}

func (c *RedisTimelineCache) Set(ctx context.Context, gen int64, plants []models.Plant) {
	if gen == noGeneration {
		return
	}
	data, err := json.Marshal(plants)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache encode failed")
		return
	}
	keys := []string{TimelineCacheKey, TimelineGenKey}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), data, c.ttl.Milliseconds()).Int()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache write failed")
		return
	}
	if stored == 0 {
		logging.Ctx(ctx).Debug().Int64("gen", gen).Msg("timeline changed while loading; cache not updated")
	}
}

func (c *RedisTimelineCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, TimelineGenKey)
		pipe.Del(ctx, TimelineCacheKey)
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("timeline cache invalidation failed")
	}
}

func parseGeneration(v interface{}) (int64, error) {
	switch g := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(g, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected generation type %T", v)
	}
}

// NoopTimelineCache is used when Redis is not configured.
type NoopTimelineCache struct{}

func (NoopTimelineCache) Get(context.Context) ([]models.Plant, int64, bool) { return nil, 0, false }
func (NoopTimelineCache) Set(context.Context, int64, []models.Plant)        {}
func (NoopTimelineCache) Invalidate(context.Context)                        {}
