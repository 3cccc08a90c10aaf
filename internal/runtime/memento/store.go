package memento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/cache"
)

// ErrUnknownKey is returned by a store that does not hold the key, e.g. because it expired or was
// written on another node
var ErrUnknownKey = errors.New("unknown memento key")

// DefaultTTL is how long an idle entry survives
const DefaultTTL = 30 * time.Minute

// Store keeps the pojos of non-persistent objects between requests. Every successful Get restarts
// the entry's time-to-live.
type Store interface {
	Put(ctx context.Context, key string, s *spec.ObjectSpecification, pojo interface{}) error
	Get(ctx context.Context, key string, s *spec.ObjectSpecification) (interface{}, error)
}

type parked struct {
	logicalType string
	pojo        interface{}
	expiresAt   time.Time
}

// InstanceStore keeps the pojos themselves in this process, so Get returns the instance that was
// put. It does not work behind a load balancer without sticky sessions.
type InstanceStore struct {
	mu      sync.Mutex
	entries map[string]*parked
	ttl     time.Duration
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewInstanceStore creates a store whose janitor drops idle entries every interval
func NewInstanceStore(ttl, interval time.Duration) *InstanceStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if interval <= 0 {
		interval = time.Minute
	}
	s := &InstanceStore{
		entries: make(map[string]*parked),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor(interval)
	return s
}

func (s *InstanceStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-s.stop:
			return
		}
	}
}

// Evict drops expired entries and returns how many were dropped
func (s *InstanceStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for key, p := range s.entries {
		if now.After(p.expiresAt) {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}

// Put parks pojo under key
func (s *InstanceStore) Put(_ context.Context, key string, ts *spec.ObjectSpecification, pojo interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &parked{logicalType: ts.LogicalTypeName(), pojo: pojo, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Get returns the parked instance
func (s *InstanceStore) Get(_ context.Context, key string, ts *spec.ObjectSpecification) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.entries[key]
	now := s.now()
	if !ok || now.After(p.expiresAt) || p.logicalType != ts.LogicalTypeName() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	p.expiresAt = now.Add(s.ttl)
	return p.pojo, nil
}

// Len is the number of parked entries
func (s *InstanceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close stops the janitor
func (s *InstanceStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

type envelope struct {
	Type  string          `json:"type"`
	State json.RawMessage `json:"state"`
}

// CacheStore keeps a JSON snapshot of each pojo in a cache.Cache. Get returns an equal copy, not
// the instance that was put; only exported fields survive.
type CacheStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheStore stores entries in c for ttl
func NewCacheStore(c cache.Cache, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CacheStore{cache: c, ttl: ttl}
}

// Put encodes pojo under key
func (s *CacheStore) Put(ctx context.Context, key string, ts *spec.ObjectSpecification, pojo interface{}) error {
	state, err := json.Marshal(pojo)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", ts.LogicalTypeName(), err)
	}
	data, err := json.Marshal(envelope{Type: ts.LogicalTypeName(), State: state})
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, "memento:"+key, data, s.ttl)
}

// Get decodes a fresh pojo from the entry under key
func (s *CacheStore) Get(ctx context.Context, key string, ts *spec.ObjectSpecification) (interface{}, error) {
	data, err := s.cache.Get(ctx, "memento:"+key)
	if cache.IsMiss(err) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("corrupt memento entry %s: %w", key, err)
	}
	if env.Type != ts.LogicalTypeName() {
		return nil, fmt.Errorf("%w: %s holds a %s", ErrUnknownKey, key, env.Type)
	}
	pojo := ts.NewInstance()
	if err := json.Unmarshal(env.State, pojo); err != nil {
		return nil, fmt.Errorf("corrupt memento entry %s: %w", key, err)
	}
	if err := s.cache.Touch(ctx, "memento:"+key, s.ttl); err != nil && !cache.IsMiss(err) {
		return nil, err
	}
	return pojo, nil
}
