package guardrail

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// WindowStore is the external ordered-timestamp store a [SlidingWindow]
// counts events against. Implementations must perform the whole
// record-trim-count cycle as one atomic transaction so concurrent callers
// across processes agree on the count.
type WindowStore interface {
	// RecordAndCount appends now to the key's event log, drops entries
	// older than now minus window, refreshes the key's expiry to ttl, and
	// returns the number of entries remaining in the window.
	RecordAndCount(ctx context.Context, key string, now time.Time, window, ttl time.Duration) (int64, error)
}

// SlidingWindow counts timestamped events per identifier in a trailing
// window backed by a [WindowStore], answering whether an identifier has
// exceeded its quota in the last TimeWindow.
//
// Quota semantics: the RequestsPerSecond config field is read here as an
// absolute per-window cap (limited iff count > RequestsPerSecond), not a
// literal per-second rate. The field name is a known mismatch kept for
// configuration compatibility with [TokenBucket].
//
// Failure policy: when the store is unreachable the limiter fails open —
// it reports not-limited and logs the error. Availability of the protected
// path wins over strict quota enforcement.
type SlidingWindow struct {
	cfg       RateLimitConfig
	store     WindowStore
	keyPrefix string
	clock     Clock
	hooks     *Hooks
	log       zerolog.Logger
}

// NewSlidingWindow creates a limiter over store. Keys are built as
// "keyPrefix:identifier".
func NewSlidingWindow(
	cfg RateLimitConfig,
	store WindowStore,
	keyPrefix string,
	clock Clock,
	hooks *Hooks,
	log zerolog.Logger,
) (*SlidingWindow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = RealClock{}
	}

	return &SlidingWindow{
		cfg:       cfg,
		store:     store,
		keyPrefix: keyPrefix,
		clock:     clock,
		hooks:     hooks,
		log:       log,
	}, nil
}

func (sw *SlidingWindow) key(identifier string) string {
	return sw.keyPrefix + ":" + identifier
}

// IsRateLimited records one event for identifier and reports whether the
// identifier has exceeded its per-window quota. Store errors are swallowed:
// the event is lost, the error is logged, and the caller proceeds unlimited.
func (sw *SlidingWindow) IsRateLimited(ctx context.Context, identifier string) bool {
	// Keys self-clean one second after the window empties.
	ttl := sw.cfg.TimeWindow + time.Second

	count, err := sw.store.RecordAndCount(ctx, sw.key(identifier), sw.clock.Now(), sw.cfg.TimeWindow, ttl)
	if err != nil {
		sw.log.Error().
			Err(err).
			Str("identifier", identifier).
			Msg("window store unavailable, failing open")
		sw.hooks.emitStoreFailOpen(identifier, err)

		return false
	}

	return count > int64(sw.cfg.RequestsPerSecond)
}

// ---------------------------------------------------------------------------
// Redis-backed store
// ---------------------------------------------------------------------------

// RedisWindowStore implements [WindowStore] on a Redis sorted set per key,
// with event timestamps (millisecond precision) as both member and score.
// The record-trim-count-expire cycle runs as a single MULTI/EXEC
// transaction, so concurrency safety is delegated to Redis.
type RedisWindowStore struct {
	rdb redis.Cmdable
}

// NewRedisWindowStore wraps an existing go-redis client. The caller owns the
// client's lifecycle.
func NewRedisWindowStore(rdb redis.Cmdable) *RedisWindowStore {
	return &RedisWindowStore{rdb: rdb}
}

// RecordAndCount implements [WindowStore].
func (s *RedisWindowStore) RecordAndCount(
	ctx context.Context,
	key string,
	now time.Time,
	window, ttl time.Duration,
) (int64, error) {
	nowMs := now.UnixMilli()
	cutoff := strconv.FormatInt(nowMs-window.Milliseconds(), 10)

	var card *redis.IntCmd

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(nowMs),
			Member: strconv.FormatInt(nowMs, 10),
		})
		pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
		card = pipe.ZCard(ctx, key)
		pipe.Expire(ctx, key, ttl)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("window transaction for %q: %w", key, err)
	}

	return card.Val(), nil
}
