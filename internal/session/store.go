package session

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTTL         = 24 * time.Hour
	DefaultMaxSessions = 10000
)

// Options configures a Store.
type Options struct {
	// TTL evicts sessions idle for longer than this.
	TTL time.Duration
	// MaxSessions caps the store; the least recently used session goes first.
	MaxSessions int
	// HistorySize is the dialog window of new sessions.
	HistorySize int
	// OnEvict is called after a session has been dropped.
	OnEvict func(userID int64)
}

type entry struct {
	mu sync.Mutex
	s  *Session
}

// Store owns all sessions of one bot instance. Distinct users are
// independent; one user's session is accessed by one goroutine at a time.
type Store struct {
	mu          sync.Mutex
	cache       *expirable.LRU[int64, *entry]
	historySize int
	now         func() time.Time
}

// NewStore builds an empty store.
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	size := opts.MaxSessions
	if size <= 0 {
		size = DefaultMaxSessions
	}
	var onEvict expirable.EvictCallback[int64, *entry]
	if opts.OnEvict != nil {
		onEvict = func(userID int64, _ *entry) { opts.OnEvict(userID) }
	}
	return &Store{
		cache:       expirable.NewLRU[int64, *entry](size, onEvict, ttl),
		historySize: opts.HistorySize,
		now:         time.Now,
	}
}

// lookup returns the entry for userID, creating it on first contact.
// Re-adding refreshes the entry's expiry.
func (st *Store) lookup(userID int64) *entry {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, ok := st.cache.Get(userID)
	if !ok {
		e = &entry{s: newSession(userID, st.historySize)}
	}
	st.cache.Add(userID, e)
	return e
}

// GetOrCreate returns the user's session, creating a default one on first
// access. Repeat calls return the same record.
func (st *Store) GetOrCreate(userID int64) *Session {
	return st.lookup(userID).s
}

// With runs fn inside the session's critical section.
func (st *Store) With(userID int64, fn func(*Session)) {
	e := st.lookup(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.s.LastActivity = st.now()
	fn(e.s)
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	return st.cache.Len()
}

// Range calls fn for every live session, each under its own lock, until fn returns false.
func (st *Store) Range(fn func(*Session) bool) {
	for _, e := range st.cache.Values() {
		e.mu.Lock()
		cont := fn(e.s)
		e.mu.Unlock()
		if !cont {
			return
		}
	}
}
