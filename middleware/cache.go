/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package middleware

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	libcch "github.com/fengmingdev/nexuskit/cache"
	libsha "github.com/fengmingdev/nexuskit/encoding/sha256"
	libprt "github.com/fengmingdev/nexuskit/protocol"
)

// EvictionPolicy selects the replacement strategy backing a CacheMiddleware.
type EvictionPolicy uint8

const (
	// PolicyTTL generalizes the teacher's cache package directly: entries
	// live until their configured expiration, with no capacity bound.
	PolicyTTL EvictionPolicy = iota
	// PolicyLRU evicts the least recently used entry once Capacity is hit,
	// backed by github.com/hashicorp/golang-lru.
	PolicyLRU
	// PolicyFIFO evicts the oldest-inserted entry once Capacity is hit.
	PolicyFIFO
	// PolicyLFU evicts the least-frequently-used entry once Capacity is hit.
	PolicyLFU
	// PolicySizeBased evicts oldest entries until total cached byte size is
	// back under MaxBytes.
	PolicySizeBased
)

// CacheConfig configures a CacheMiddleware.
type CacheConfig struct {
	Policy   EvictionPolicy
	Capacity int           // entry count bound, used by LRU/FIFO/LFU
	MaxBytes int           // byte size bound, used by PolicySizeBased
	TTL      time.Duration // used by PolicyTTL; 0 means never expire
	L2       *CacheConfig  // optional second tier, consulted on L1 miss
}

type cacheEntry struct {
	body   []byte
	size   int
	freq   int
	stored time.Time
}

// CacheStats reports cache hit/miss counters. Monotonic for the life of the
// middleware instance; ResetStats clears them back to zero.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// ErrCacheHit is returned by CacheMiddleware.HandleOutgoing on a cache hit:
// Body is the cached response the caller must hand back in place of
// performing the real round trip. Pipeline.ApplyOutgoing recognizes it and
// returns it unwrapped rather than folding it into the generic
// errMiddleware failure, so a caller detects the short-circuit with
// errors.As and pulls Body out of it.
type ErrCacheHit struct {
	Body []byte
}

func (e *ErrCacheHit) Error() string {
	return "middleware: cache hit, short-circuiting outgoing flow"
}

// CacheMiddleware memoizes outgoing request bodies keyed by their content
// hash: HandleOutgoing short-circuits an identical subsequent request with
// the response HandleIncoming recorded for it, via ErrCacheHit.
type CacheMiddleware struct {
	name string
	cfg  CacheConfig

	mu    sync.Mutex
	ttl   libcch.Cache[string, cacheEntry]
	lru   *lru.Cache
	fifo  []string
	order map[string]time.Time
	store map[string]cacheEntry
	bytes int
	stats CacheStats

	l2 *CacheMiddleware
}

// NewCacheMiddleware builds a CacheMiddleware for cfg. ctx governs the
// lifetime of the PolicyTTL background expirer, mirroring cache.New's own
// context-scoped cleanup.
func NewCacheMiddleware(ctx context.Context, name string, cfg CacheConfig) *CacheMiddleware {
	m := &CacheMiddleware{name: name, cfg: cfg}

	switch cfg.Policy {
	case PolicyTTL:
		m.ttl = libcch.New[string, cacheEntry](ctx, cfg.TTL)
	case PolicyLRU:
		cap := cfg.Capacity
		if cap <= 0 {
			cap = 128
		}
		m.lru, _ = lru.New(cap)
	default:
		m.store = make(map[string]cacheEntry)
		m.order = make(map[string]time.Time)
	}

	if cfg.L2 != nil {
		m.l2 = NewCacheMiddleware(ctx, name+":l2", *cfg.L2)
	}
	return m
}

func (m *CacheMiddleware) Name() string     { return m.name }
func (m *CacheMiddleware) Priority() uint16 { return 10 }

// key hashes the body to a fixed-length cache key. Collisions are accepted
// (SHA-256 is cryptographically sized for this), same as a content-addressed
// store would.
func key(b []byte) string {
	return string(libsha.New().Encode(canonicalize(b)))
}

// canonicalize zeroes a framed request's request_id field before hashing, so
// two logically identical requests collapse to the same cache key even
// though the protocol adapter stamps each with a fresh, monotonically
// increasing request id. Bytes that aren't a recognizable protocol frame
// (e.g. raw application payloads) are hashed unchanged.
func canonicalize(b []byte) []byte {
	const lengthPrefix = 4
	if len(b) < lengthPrefix+libprt.HeaderSize {
		return b
	}
	header := b[lengthPrefix : lengthPrefix+libprt.HeaderSize]
	if binary.BigEndian.Uint16(header[0:2]) != libprt.FrameTag {
		return b
	}

	out := append([]byte(nil), b...)
	reqIDOffset := lengthPrefix + 6
	for i := 0; i < 4; i++ {
		out[reqIDOffset+i] = 0
	}
	return out
}

// HandleOutgoing checks the cache for a response recorded against b's
// content hash. A hit increments Stats().Hits and short-circuits the flow by
// returning ErrCacheHit instead of letting the request continue down the
// pipeline and onto the wire. A miss increments Stats().Misses and passes b
// through unchanged.
func (m *CacheMiddleware) HandleOutgoing(_ context.Context, b []byte, _ Context) ([]byte, error) {
	if v, ok := m.Lookup(b); ok {
		m.recordHit()
		return nil, &ErrCacheHit{Body: v}
	}
	m.recordMiss()
	return b, nil
}

// HandleIncoming records the response body under mctx.Meta["cache_key"] when
// present, so a subsequent identical outgoing flow can be served from
// HandleOutgoing/Lookup.
func (m *CacheMiddleware) HandleIncoming(_ context.Context, b []byte, mctx Context) ([]byte, error) {
	if k, ok := mctx.Meta["cache_key"].(string); ok {
		m.Put(k, b)
	}
	return b, nil
}

// StoreResponse caches respBody under reqBody's content-hash key, the same
// key HandleOutgoing/Lookup derive from a later identical request.
func (m *CacheMiddleware) StoreResponse(reqBody, respBody []byte) {
	m.Put(key(reqBody), respBody)
}

// Lookup returns a cached body for a request body, if present and unexpired.
func (m *CacheMiddleware) Lookup(reqBody []byte) ([]byte, bool) {
	v, ok := m.get(key(reqBody))
	if ok {
		return v, true
	}
	if m.l2 != nil {
		return m.l2.get(key(reqBody))
	}
	return nil, false
}

func (m *CacheMiddleware) recordHit() {
	m.mu.Lock()
	m.stats.Hits++
	m.mu.Unlock()
}

func (m *CacheMiddleware) recordMiss() {
	m.mu.Lock()
	m.stats.Misses++
	m.mu.Unlock()
}

// Stats returns a point-in-time snapshot of the hit/miss counters.
func (m *CacheMiddleware) Stats() CacheStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ResetStats zeroes the hit/miss counters.
func (m *CacheMiddleware) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = CacheStats{}
}

// Put stores b under the cache key k, evicting per the configured policy.
func (m *CacheMiddleware) Put(k string, b []byte) {
	switch m.cfg.Policy {
	case PolicyTTL:
		m.ttl.Store(k, cacheEntry{body: b, stored: time.Now()})
	case PolicyLRU:
		m.lru.Add(k, cacheEntry{body: b, stored: time.Now()})
	default:
		m.putBounded(k, b)
	}
}

func (m *CacheMiddleware) putBounded(k string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := cacheEntry{body: b, size: len(b), stored: time.Now()}
	if old, exists := m.store[k]; !exists {
		m.fifo = append(m.fifo, k)
	} else {
		m.bytes -= old.size
	}
	m.store[k] = e
	m.order[k] = e.stored
	m.bytes += e.size

	switch m.cfg.Policy {
	case PolicyFIFO:
		for m.cfg.Capacity > 0 && len(m.store) > m.cfg.Capacity {
			m.evictOldestLocked()
		}
	case PolicyLFU:
		for m.cfg.Capacity > 0 && len(m.store) > m.cfg.Capacity {
			m.evictLeastUsedLocked()
		}
	case PolicySizeBased:
		for m.cfg.MaxBytes > 0 && m.bytes > m.cfg.MaxBytes && len(m.fifo) > 0 {
			m.evictOldestLocked()
		}
	}
}

func (m *CacheMiddleware) evictOldestLocked() {
	if len(m.fifo) == 0 {
		return
	}
	oldest := m.fifo[0]
	m.fifo = m.fifo[1:]
	if e, ok := m.store[oldest]; ok {
		m.bytes -= e.size
	}
	delete(m.store, oldest)
	delete(m.order, oldest)
}

func (m *CacheMiddleware) evictLeastUsedLocked() {
	var worst string
	best := -1
	for k, e := range m.store {
		if best == -1 || e.freq < best {
			best = e.freq
			worst = k
		}
	}
	if worst != "" {
		if e, ok := m.store[worst]; ok {
			m.bytes -= e.size
		}
		delete(m.store, worst)
		delete(m.order, worst)
		for i, k := range m.fifo {
			if k == worst {
				m.fifo = append(m.fifo[:i], m.fifo[i+1:]...)
				break
			}
		}
	}
}

func (m *CacheMiddleware) get(k string) ([]byte, bool) {
	switch m.cfg.Policy {
	case PolicyTTL:
		e, _, ok := m.ttl.Load(k)
		if !ok {
			return nil, false
		}
		return e.body, true
	case PolicyLRU:
		v, ok := m.lru.Get(k)
		if !ok {
			return nil, false
		}
		return v.(cacheEntry).body, true
	default:
		m.mu.Lock()
		defer m.mu.Unlock()
		e, ok := m.store[k]
		if !ok {
			return nil, false
		}
		if m.cfg.Policy == PolicyLFU {
			e.freq++
			m.store[k] = e
		}
		return e.body, true
	}
}

// Len reports the current entry count, for test assertions on capacity
// invariants.
func (m *CacheMiddleware) Len() int {
	switch m.cfg.Policy {
	case PolicyLRU:
		return m.lru.Len()
	case PolicyTTL:
		n := 0
		m.ttl.Walk(func(string, cacheEntry, time.Duration) bool { n++; return true })
		return n
	default:
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.store)
	}
}

// Close releases background resources held by the cache (the TTL policy's
// expirer goroutine in particular).
func (m *CacheMiddleware) Close() error {
	if m.cfg.Policy == PolicyTTL {
		m.ttl.Close()
	}
	if m.l2 != nil {
		return m.l2.Close()
	}
	return nil
}

var _ Middleware = (*CacheMiddleware)(nil)
