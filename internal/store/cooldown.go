package store

import (
	"hash/fnv"
	"sync"
	"time"
)

const cooldownShards = 16

// PersistFunc durably records a trigger time before it is committed
// in memory. Typically an alert store's MarkTriggered.
type PersistFunc func(alertID string, at time.Time) error

type cooldownShard struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// CooldownStore gates alert re-firing. TryTrigger is atomic per alert id:
// concurrent evaluation passes landing on the same tick cannot double-fire.
// Ids are sharded so unrelated alerts never contend on one lock.
type CooldownStore struct {
	cooldown time.Duration
	persist  PersistFunc
	shards   [cooldownShards]cooldownShard
}

func NewCooldownStore(cooldown time.Duration, persist PersistFunc) *CooldownStore {
	s := &CooldownStore{cooldown: cooldown, persist: persist}
	for i := range s.shards {
		s.shards[i].last = make(map[string]time.Time)
	}
	return s
}

func (s *CooldownStore) shard(alertID string) *cooldownShard {
	h := fnv.New32a()
	h.Write([]byte(alertID))
	return &s.shards[h.Sum32()%cooldownShards]
}

// Seed primes the store from a persisted last-trigger time at startup.
func (s *CooldownStore) Seed(alertID string, at time.Time) {
	sh := s.shard(alertID)
	sh.mu.Lock()
	sh.last[alertID] = at
	sh.mu.Unlock()
}

// TryTrigger reports whether the alert may fire at now, and if so records
// the trigger. A trigger blocks re-firing until cooldown has fully elapsed;
// at exactly now-last == cooldown the alert is armed again.
// If the persist hook fails the in-memory state is left unchanged and the
// caller must not notify.
func (s *CooldownStore) TryTrigger(alertID string, now time.Time) bool {
	sh := s.shard(alertID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if last, ok := sh.last[alertID]; ok {
		if now.Sub(last) < s.cooldown {
			return false
		}
	}
	if s.persist != nil {
		if err := s.persist(alertID, now); err != nil {
			return false
		}
	}
	sh.last[alertID] = now
	return true
}

// Forget drops the record for a deleted alert.
func (s *CooldownStore) Forget(alertID string) {
	sh := s.shard(alertID)
	sh.mu.Lock()
	delete(sh.last, alertID)
	sh.mu.Unlock()
}
