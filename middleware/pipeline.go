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
	"errors"
	"sort"
	"sync"
)

// pipeline is the default Pipeline: an ordered slice guarded by a mutex,
// sorted ascending by Priority with ties broken by insertion order (a stable
// sort preserves that automatically).
type pipeline struct {
	mu    sync.Mutex
	chain []Middleware
	seq   []int // insertion sequence parallel to chain, for stable re-sort
	next  int
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() Pipeline {
	return &pipeline{}
}

func (p *pipeline) Add(m Middleware) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.chain = append(p.chain, m)
	p.seq = append(p.seq, p.next)
	p.next++

	p.sortLocked()
}

func (p *pipeline) sortLocked() {
	type entry struct {
		m Middleware
		s int
	}
	entries := make([]entry, len(p.chain))
	for i := range p.chain {
		entries[i] = entry{p.chain[i], p.seq[i]}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].m.Priority() != entries[j].m.Priority() {
			return entries[i].m.Priority() < entries[j].m.Priority()
		}
		return entries[i].s < entries[j].s
	})
	for i := range entries {
		p.chain[i] = entries[i].m
		p.seq[i] = entries[i].s
	}
}

func (p *pipeline) Remove(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	chain := p.chain[:0]
	seq := p.seq[:0]
	for i, m := range p.chain {
		if m.Name() == name {
			continue
		}
		chain = append(chain, m)
		seq = append(seq, p.seq[i])
	}
	p.chain = chain
	p.seq = seq
}

// List returns a snapshot copy of the current chain, in outgoing order.
func (p *pipeline) List() []Middleware {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Middleware, len(p.chain))
	copy(out, p.chain)
	return out
}

func (p *pipeline) ApplyOutgoing(ctx context.Context, b []byte, mctx Context) ([]byte, error) {
	snapshot := p.List()
	mctx.Direction = Outgoing

	var err error
	for _, m := range snapshot {
		b, err = m.HandleOutgoing(ctx, b, mctx)
		if err != nil {
			// A cache hit is a short-circuit signal, not a middleware
			// failure: surface it unwrapped so a caller can pull the
			// cached body out with errors.As. liberr.Error's Make()
			// flattens any parent it doesn't already recognize down to a
			// bare message, which would otherwise erase ErrCacheHit here.
			var hit *ErrCacheHit
			if errors.As(err, &hit) {
				return nil, hit
			}
			return nil, errMiddleware(m.Name(), err)
		}
	}
	return b, nil
}

func (p *pipeline) ApplyIncoming(ctx context.Context, b []byte, mctx Context) ([]byte, error) {
	snapshot := p.List()
	mctx.Direction = Incoming

	var err error
	for i := len(snapshot) - 1; i >= 0; i-- {
		m := snapshot[i]
		b, err = m.HandleIncoming(ctx, b, mctx)
		if err != nil {
			return nil, errMiddleware(m.Name(), err)
		}
	}
	return b, nil
}
