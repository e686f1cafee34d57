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

package heartbeat

import (
	"math"
	"sync"
	"time"
)

type sentRecord struct {
	sentAt time.Time
}

type outcome struct {
	at      time.Time
	success bool
}

// manager is the default Manager: a cooperative timer loop following the
// same time.Ticker/select-on-stop-channel idiom as protocol.PendingTable's
// sweeper.
type manager struct {
	cfg    Config
	send   Sender
	attempt int

	mu      sync.Mutex
	pending map[uint32]sentRecord
	window  []outcome
	stats   Stats

	stop    chan struct{}
	started bool
}

// NewManager returns a Manager sending/replying through send per cfg.
func NewManager(cfg Config, send Sender) Manager {
	if cfg.Window <= 0 {
		cfg.Window = 5 * time.Minute
	}
	return &manager{
		cfg:     cfg,
		send:    send,
		pending: make(map[uint32]sentRecord),
	}
}

func (m *manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	if m.cfg.Mode == ModeServer {
		// never originates heartbeats; the loop only tends the timeout
		// check below so server-mode simply does nothing here.
		return
	}

	go m.loop(stop)
}

func (m *manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false
	close(m.stop)
}

func (m *manager) loop(stop chan struct{}) {
	interval := m.currentInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.sendOne()
			m.checkTimeouts()

			next := m.currentInterval()
			if next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (m *manager) sendOne() {
	id, err := m.send.SendHeartbeat()
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.stats.Failed++
		m.recordOutcomeLocked(false)
		return
	}
	m.stats.Sent++
	m.pending[id] = sentRecord{sentAt: time.Now()}
}

// checkTimeouts fails any pending heartbeat older than cfg.Timeout and
// signals OnTimeout once at least one is found, per spec: a single
// consecutive failure past timeout is enough to disconnect.
func (m *manager) checkTimeouts() {
	if m.cfg.Timeout <= 0 {
		return
	}

	m.mu.Lock()
	now := time.Now()
	timedOut := false
	for id, rec := range m.pending {
		if now.Sub(rec.sentAt) > m.cfg.Timeout {
			delete(m.pending, id)
			m.stats.Failed++
			m.recordOutcomeLocked(false)
			timedOut = true
		}
	}
	m.mu.Unlock()

	if timedOut && m.cfg.OnTimeout != nil {
		m.cfg.OnTimeout()
	}
}

func (m *manager) OnAck(requestID uint32, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.pending[requestID]
	if !ok {
		return
	}
	delete(m.pending, requestID)

	rtt := now.Sub(rec.sentAt)
	m.stats.Received++
	m.stats.LastRTT = rtt
	if m.stats.AverageRTT == 0 {
		m.stats.AverageRTT = rtt
	} else {
		// running mean: weight the new sample at 1/N via received count.
		n := time.Duration(m.stats.Received)
		m.stats.AverageRTT += (rtt - m.stats.AverageRTT) / n
	}
	m.recordOutcomeLocked(true)
}

func (m *manager) OnIncomingRequest(requestID uint32) {
	if m.cfg.Mode == ModeServer || m.cfg.Mode == ModeBoth {
		_ = m.send.SendHeartbeatAck(requestID)
	}
}

func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// recordOutcomeLocked appends an outcome to the sliding window and updates
// the consecutive-failure counter that drives currentInterval's adaptive
// multiplier: a success resets it, a failure grows it, so the computed
// interval keeps compounding across a run of failures instead of pinning at
// the base rate.
func (m *manager) recordOutcomeLocked(success bool) {
	if success {
		m.attempt = 0
	} else {
		m.attempt++
	}

	now := time.Now()
	m.window = append(m.window, outcome{at: now, success: success})

	cutoff := now.Add(-m.cfg.Window)
	i := 0
	for i < len(m.window) && m.window[i].at.Before(cutoff) {
		i++
	}
	m.window = m.window[i:]
}

// successRate returns the fraction of successful heartbeats within the
// current sliding window. An empty window is treated as fully successful,
// so the adaptive interval starts at its fastest setting.
func (m *manager) successRate() float64 {
	if len(m.window) == 0 {
		return 1
	}
	ok := 0
	for _, o := range m.window {
		if o.success {
			ok++
		}
	}
	return float64(ok) / float64(len(m.window))
}

// currentInterval computes the next send interval. Fixed mode always
// returns cfg.Interval; adaptive mode applies the piecewise multiplier
// family against the current attempt count, preserving the invariant that a
// lower success rate never decreases the delay.
func (m *manager) currentInterval() time.Duration {
	if !m.cfg.Adaptive {
		return m.cfg.Interval
	}

	m.mu.Lock()
	rate := m.successRate()
	m.mu.Unlock()

	var base float64
	switch {
	case rate > 0.8:
		base = 1.5
	case rate > 0.5:
		base = 2.0
	default:
		base = 2.5
	}

	delay := float64(m.cfg.Interval) * math.Pow(base, float64(m.attempt))
	d := time.Duration(delay)
	if m.cfg.MaxDelay > 0 && d > m.cfg.MaxDelay {
		d = m.cfg.MaxDelay
	}
	return d
}

var _ Manager = (*manager)(nil)
