package stores

import (
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	DefaultShards = 32
	MaxShards     = 4096
)

var ErrInvalidShardCount = errors.New("invalid shard count")

// Record is the stored state for one identity.
type Record struct {
	SecretHash [32]byte
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Attempts   int
}

// Op tells Mutate what to do with the record returned by the callback.
type Op uint8

const (
	OpKeep Op = iota
	OpPut
	OpDelete
)

type shard struct {
	mu      sync.Mutex
	records map[string]Record
}

// MemoryStore maps identities to records. It is safe for concurrent use.
type MemoryStore struct {
	shards []shard
}

func NewMemoryStore(shardCount int) (*MemoryStore, error) {
	if shardCount <= 0 || shardCount > MaxShards {
		return nil, ErrInvalidShardCount
	}

	s := &MemoryStore{shards: make([]shard, shardCount)}
	for i := range s.shards {
		s.shards[i].records = make(map[string]Record)
	}
	return s, nil
}

func (s *MemoryStore) shardFor(identity string) *shard {
	return &s.shards[xxhash.Sum64String(identity)%uint64(len(s.shards))]
}

func (s *MemoryStore) Get(identity string) (Record, bool) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[identity]
	return rec, ok
}

func (s *MemoryStore) Put(identity string, rec Record) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.records[identity] = rec
}

// Delete removes the record and reports whether one existed.
func (s *MemoryStore) Delete(identity string) bool {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.records[identity]
	delete(sh.records, identity)
	return ok
}

// Mutate runs fn under the identity's lock and applies the returned Op.
// fn must not call back into the store.
func (s *MemoryStore) Mutate(identity string, fn func(current Record, exists bool) (Record, Op)) {
	sh := s.shardFor(identity)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, exists := sh.records[identity]
	next, op := fn(current, exists)

	switch op {
	case OpPut:
		sh.records[identity] = next
	case OpDelete:
		delete(sh.records, identity)
	}
}

// ForEachExpired calls fn for every record with ExpiresAt <= now and evicts
// those for which fn returns true. Shards are visited one at a time, so a
// sweep never blocks the whole store. fn runs under a shard lock and must not
// call back into the store. A nil fn evicts every expired record.
func (s *MemoryStore) ForEachExpired(now time.Time, fn func(identity string, rec Record) bool) int {
	evicted := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for identity, rec := range sh.records {
			if rec.ExpiresAt.After(now) {
				continue
			}
			if fn == nil || fn(identity, rec) {
				delete(sh.records, identity)
				evicted++
			}
		}
		sh.mu.Unlock()
	}
	return evicted
}

// Len returns the number of stored records across all shards.
func (s *MemoryStore) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}
	return n
}
