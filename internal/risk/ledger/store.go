// Package ledger holds the per-customer transaction history the velocity
// assessor reads. State is transient and in-process: entries are bounded by
// age (the longest configured window) and by a defensive per-customer cap,
// and customers are dropped entirely once their buffer empties.
package ledger

import (
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/pkg/metrics"
)

// Config controls retention and sharding of the ledger store.
type Config struct {
	// MaxAge is the retention horizon; entries older than this are evicted.
	// It must cover the longest window the velocity assessor queries.
	MaxAge time.Duration
	// CleanupInterval is how often a shard sweeps its customers for
	// expired entries. Sweeps run lazily on the recording path.
	CleanupInterval time.Duration
	// MaxEntriesPerCustomer caps a single customer's buffer. On overflow
	// the oldest entry is dropped so a transaction flood cannot grow
	// memory without bound.
	MaxEntriesPerCustomer int
	// ShardCount is the number of lock stripes. Customers hash onto
	// shards so recording for one customer never blocks another on a
	// different shard.
	ShardCount int
}

type entry struct {
	ts     time.Time
	amount float64
}

type customerBuffer struct {
	// entries are ordered oldest-first; timestamps never decrease.
	entries []entry
}

type shard struct {
	mu          sync.RWMutex
	customers   map[string]*customerBuffer
	lastCleanup time.Time
}

// WindowStats aggregates a customer's entries inside one sliding window.
type WindowStats struct {
	Count int
	Total float64
	Avg   float64
	Max   float64
	// Rate is transactions per second over the span of the entries in the
	// window. A single entry reports its count as the rate.
	Rate float64
}

// Store is a sharded, striped-lock ledger keyed by customer ID.
type Store struct {
	shards        []*shard
	maxAge        time.Duration
	cleanupEvery  time.Duration
	maxEntries    int
	now           func() time.Time
	logger        *zap.SugaredLogger
	customerCount atomic.Int64
}

// New creates a ledger store using the wall clock.
func New(cfg Config, logger *zap.SugaredLogger) *Store {
	return NewWithClock(cfg, logger, time.Now)
}

// NewWithClock creates a ledger store with an injected clock. Tests use this
// to advance time deterministically.
func NewWithClock(cfg Config, logger *zap.SugaredLogger, now func() time.Time) *Store {
	if cfg.ShardCount <= 0 {
		cfg.ShardCount = 32
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7 * 24 * time.Hour
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	if cfg.MaxEntriesPerCustomer <= 0 {
		cfg.MaxEntriesPerCustomer = 10000
	}

	shards := make([]*shard, cfg.ShardCount)
	start := now()
	for i := range shards {
		shards[i] = &shard{
			customers:   make(map[string]*customerBuffer),
			lastCleanup: start,
		}
	}

	return &Store{
		shards:       shards,
		maxAge:       cfg.MaxAge,
		cleanupEvery: cfg.CleanupInterval,
		maxEntries:   cfg.MaxEntriesPerCustomer,
		now:          now,
		logger:       logger,
	}
}

func (s *Store) shardFor(customerID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(customerID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Record appends an observation for a customer. It never fails; a sweep of
// the customer's shard may run opportunistically under the same lock.
func (s *Store) Record(customerID string, amount float64) {
	now := s.now()
	sh := s.shardFor(customerID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	buf, ok := sh.customers[customerID]
	if !ok {
		buf = &customerBuffer{}
		sh.customers[customerID] = buf
		metrics.LedgerCustomers.Set(float64(s.customerCount.Add(1)))
	}

	ts := now
	if n := len(buf.entries); n > 0 && ts.Before(buf.entries[n-1].ts) {
		// Keep the buffer time-ordered even if the clock steps back.
		ts = buf.entries[n-1].ts
	}
	buf.entries = append(buf.entries, entry{ts: ts, amount: amount})

	if len(buf.entries) > s.maxEntries {
		drop := len(buf.entries) - s.maxEntries
		buf.entries = append([]entry(nil), buf.entries[drop:]...)
		metrics.LedgerEntriesEvicted.Add(float64(drop))
	}

	if now.Sub(sh.lastCleanup) >= s.cleanupEvery {
		s.cleanupShardLocked(sh, now)
		sh.lastCleanup = now
	}
}

// cleanupShardLocked drops entries past the retention horizon and removes
// customers whose buffers are empty. Caller holds the shard lock.
func (s *Store) cleanupShardLocked(sh *shard, now time.Time) {
	cutoff := now.Add(-s.maxAge)
	evicted := 0
	removed := 0
	for id, buf := range sh.customers {
		idx := sort.Search(len(buf.entries), func(i int) bool {
			return !buf.entries[i].ts.Before(cutoff)
		})
		if idx == 0 {
			continue
		}
		evicted += idx
		if idx == len(buf.entries) {
			delete(sh.customers, id)
			removed++
			continue
		}
		buf.entries = append([]entry(nil), buf.entries[idx:]...)
	}
	if evicted > 0 {
		metrics.LedgerEntriesEvicted.Add(float64(evicted))
	}
	if removed > 0 {
		metrics.LedgerCustomers.Set(float64(s.customerCount.Add(int64(-removed))))
		s.logger.Debugw("ledger sweep removed idle customers",
			"removed", removed,
			"entries_evicted", evicted,
		)
	}
}

// Sweep forces an eviction pass over every shard. The periodic background
// sweeper calls this so idle shards do not retain expired entries forever.
func (s *Store) Sweep() {
	now := s.now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		s.cleanupShardLocked(sh, now)
		sh.lastCleanup = now
		sh.mu.Unlock()
	}
}

// Window aggregates the customer's entries with timestamp >= now-window.
// An unknown customer yields zero stats, never an error. The scan is bounded
// by the window: entries are time-ordered, so a binary search locates the
// oldest in-window entry and only entries from there on are visited.
func (s *Store) Window(customerID string, window time.Duration) WindowStats {
	now := s.now()
	cutoff := now.Add(-window)
	sh := s.shardFor(customerID)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	buf, ok := sh.customers[customerID]
	if !ok {
		return WindowStats{}
	}

	idx := sort.Search(len(buf.entries), func(i int) bool {
		return !buf.entries[i].ts.Before(cutoff)
	})
	in := buf.entries[idx:]
	if len(in) == 0 {
		return WindowStats{}
	}

	stats := WindowStats{Count: len(in)}
	for _, e := range in {
		stats.Total += e.amount
		if e.amount > stats.Max {
			stats.Max = e.amount
		}
	}
	stats.Avg = stats.Total / float64(stats.Count)

	span := in[len(in)-1].ts.Sub(in[0].ts).Seconds()
	if span > 0 {
		if span < 1 {
			span = 1
		}
		stats.Rate = float64(stats.Count) / span
	} else {
		stats.Rate = float64(stats.Count)
	}
	return stats
}

// Customers reports how many customers the store currently tracks.
func (s *Store) Customers() int {
	return int(s.customerCount.Load())
}
