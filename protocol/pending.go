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

package protocol

import (
	"sync"
	"time"

	libatm "github.com/fengmingdev/nexuskit/atomic"
	liberr "github.com/fengmingdev/nexuskit/errors"
)

// pendingEntry is one in-flight request awaiting its response.
type pendingEntry struct {
	registered time.Time
	deadline   time.Time
	done       chan pendingResult
}

type pendingResult struct {
	code uint32
	body []byte
	err  error
}

// PendingTable tracks in-flight requests by request id, built on
// atomic.MapTyped (teacher: atomic/synmap.go) rather than a hand-rolled
// mutex-guarded map.
type PendingTable struct {
	m libatm.MapTyped[uint32, *pendingEntry]

	sweepMu   sync.Mutex
	sweepStop chan struct{}
}

// NewPendingTable returns an empty table and starts its background sweeper,
// scanning every sweepInterval for entries whose deadline has passed.
func NewPendingTable(sweepInterval time.Duration) *PendingTable {
	if sweepInterval <= 0 {
		sweepInterval = time.Second
	}
	t := &PendingTable{
		m:         libatm.NewMapTyped[uint32, *pendingEntry](),
		sweepStop: make(chan struct{}),
	}
	go t.sweepLoop(sweepInterval)
	return t
}

// Register adds a waiter for id with the given deadline. Calling Register
// twice for the same id replaces the previous waiter silently (callers must
// ensure request ids are unique, per the allocator's monotonic contract).
func (t *PendingTable) Register(id uint32, deadline time.Time) <-chan pendingResult {
	e := &pendingEntry{
		registered: time.Now(),
		deadline:   deadline,
		done:       make(chan pendingResult, 1),
	}
	t.m.Store(id, e)
	return e.done
}

// Resolve completes the waiter for id with a response, if still registered.
// A missing id is a no-op (the response is dropped, per spec.md's demux
// rule for responses whose pending entry has already expired or vanished).
func (t *PendingTable) Resolve(id uint32, code uint32, body []byte) {
	if e, ok := t.m.LoadAndDelete(id); ok {
		e.done <- pendingResult{code: code, body: body}
	}
}

// FailAll fails every still-registered waiter with cause (NotConnected on
// disconnect), per spec.md's "on disconnect fail all entries" policy.
func (t *PendingTable) FailAll(cause error) {
	t.m.Range(func(id uint32, e *pendingEntry) bool {
		t.m.Delete(id)
		e.done <- pendingResult{err: cause}
		return true
	})
}

// Close stops the background sweeper. Idempotent.
func (t *PendingTable) Close() {
	t.sweepMu.Lock()
	defer t.sweepMu.Unlock()
	select {
	case <-t.sweepStop:
		// already closed
	default:
		close(t.sweepStop)
	}
}

func (t *PendingTable) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.sweepStop:
			return
		case now := <-ticker.C:
			t.sweepExpired(now)
		}
	}
}

func (t *PendingTable) sweepExpired(now time.Time) {
	var expired []uint32
	t.m.Range(func(id uint32, e *pendingEntry) bool {
		if !e.deadline.IsZero() && now.After(e.deadline) {
			expired = append(expired, id)
		}
		return true
	})

	for _, id := range expired {
		if e, ok := t.m.LoadAndDelete(id); ok {
			e.done <- pendingResult{err: liberr.RequestTimeout.Error(nil)}
		}
	}
}
