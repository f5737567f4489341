// Package cache keeps per-day slot availability in Redis and broadcasts changes to it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the pub/sub channel carrying availability changes.
const EventsChannel = "availability:events"

// ErrMiss is returned when nothing is cached for a key.
var ErrMiss = errors.New("cache: miss")

// generationTTL outlives any read that could still be holding a generation.
const generationTTL = 48 * time.Hour

// setIfCurrent writes the entry only while the generation is unchanged.
// KEYS: generation, entry. ARGV: expected generation, payload, ttl in ms.
var setIfCurrent = redis.NewScript(`
local gen = redis.call('GET', KEYS[1]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Availability caches the free slot list of a station on a date. Every Invalidate bumps a
// per-key generation, and Set only stores lists computed under the current one, so a list
// read before a change never outlives it.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailability returns a cache with the given entry ttl.
func NewAvailability(client *redis.Client, ttl time.Duration) *Availability {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Availability{client: client, ttl: ttl}
}

func (a *Availability) key(stationID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", stationID, date)
}

func (a *Availability) genKey(stationID int64, date string) string {
	return fmt.Sprintf("availability:gen:%d:%s", stationID, date)
}

// Generation returns the current generation of the key. Take it before reading the source.
func (a *Availability) Generation(ctx context.Context, stationID int64, date string) (int64, error) {
	gen, err := a.client.Get(ctx, a.genKey(stationID, date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Get returns the cached slot list or ErrMiss.
func (a *Availability) Get(ctx context.Context, stationID int64, date string) ([]string, error) {
	raw, err := a.client.Get(ctx, a.key(stationID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var slots []string
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

// Set stores the slot list computed under generation gen. It is a no-op once the key has
// been invalidated since.
func (a *Availability) Set(ctx context.Context, stationID int64, date string, gen int64, slots []string) error {
	if slots == nil {
		slots = []string{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	keys := []string{a.genKey(stationID, date), a.key(stationID, date)}
	return setIfCurrent.Run(ctx, a.client, keys, strconv.FormatInt(gen, 10), data, a.ttl.Milliseconds()).Err()
}

// Invalidate drops the cached list and advances the generation.
func (a *Availability) Invalidate(ctx context.Context, stationID int64, date string) error {
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		gen := a.genKey(stationID, date)
		pipe.Incr(ctx, gen)
		pipe.Expire(ctx, gen, generationTTL)
		pipe.Del(ctx, a.key(stationID, date))
		return nil
	})
	return err
}
