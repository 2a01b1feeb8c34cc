// Package ratelimit implements a sliding-window trigger limiter keyed by
// (hook, user) and (hook, channel). State is sharded by hook ID so unrelated
// hooks never contend on the same mutex, while the two caps of a single hook
// are always checked and recorded under one lock.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

// Config holds the caps for one hook. Window must be positive.
type Config struct {
	PerUser    int
	PerChannel int
	Window     time.Duration
}

const shardCount = 16

type shard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// Limiter tracks recent trigger timestamps per key. Entries older than the
// window are evicted lazily on access. Safe for concurrent use.
type Limiter struct {
	shards [shardCount]shard
}

func New() *Limiter {
	l := &Limiter{}
	for i := range l.shards {
		l.shards[i].windows = make(map[string][]time.Time)
	}
	return l
}

// Allow reports whether a trigger of hookID by userID in channelID may fire
// at time now under cfg. Both the per-user and per-channel caps are checked
// before either key is recorded: a rejected trigger consumes no budget on
// either counter.
func (l *Limiter) Allow(cfg Config, hookID, userID, channelID string, now time.Time) bool {
	s := &l.shards[shardIndex(hookID)]
	cutoff := now.Add(-cfg.Window)

	userKey := "u\x00" + hookID + "\x00" + userID
	chanKey := "c\x00" + hookID + "\x00" + channelID

	s.mu.Lock()
	defer s.mu.Unlock()

	userHits := s.evict(userKey, cutoff)
	chanHits := s.evict(chanKey, cutoff)

	if len(userHits) >= cfg.PerUser || len(chanHits) >= cfg.PerChannel {
		return false
	}

	s.windows[userKey] = append(userHits, now)
	s.windows[chanKey] = append(chanHits, now)
	return true
}

// evict drops timestamps at or before cutoff and writes the trimmed window
// back, deleting the key entirely when nothing recent remains.
func (s *shard) evict(key string, cutoff time.Time) []time.Time {
	hits := s.windows[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		hits = append(hits[:0:0], hits[i:]...)
	}
	if len(hits) == 0 {
		delete(s.windows, key)
	} else {
		s.windows[key] = hits
	}
	return hits
}

func shardIndex(hookID string) int {
	h := fnv.New32a()
	h.Write([]byte(hookID))
	return int(h.Sum32() % shardCount)
}
