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

package reconnect

import (
	"math"
	"sync"
	"time"
)

type adaptiveOutcome struct {
	at      time.Time
	success bool
}

// Adaptive picks a multiplier family from a 5-minute (default) sliding
// window of connection outcomes, the same success-rate-driven shape as
// heartbeat.Manager's adaptive interval.
type Adaptive struct {
	Base        time.Duration
	MaxDelay    time.Duration
	Window      time.Duration
	MaxAttempts int

	mu      sync.Mutex
	history []adaptiveOutcome
}

func NewAdaptive(base, maxDelay, window time.Duration, maxAttempts int) *Adaptive {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Adaptive{Base: base, MaxDelay: maxDelay, Window: window, MaxAttempts: maxAttempts}
}

func (a *Adaptive) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if a.MaxAttempts > 0 && attempt > a.MaxAttempts {
		return 0, false
	}

	a.mu.Lock()
	a.history = append(a.history, adaptiveOutcome{at: time.Now(), success: false})
	rate := a.successRateLocked()
	a.mu.Unlock()

	var mult float64
	switch {
	case rate > 0.8:
		mult = 1.5
	case rate > 0.5:
		mult = 2.0
	default:
		mult = 2.5
	}

	delay := float64(a.Base) * math.Pow(mult, float64(attempt-1))
	d := time.Duration(delay)
	if a.MaxDelay > 0 && d > a.MaxDelay {
		d = a.MaxDelay
	}
	return d, true
}

func (a *Adaptive) successRateLocked() float64 {
	cutoff := time.Now().Add(-a.Window)
	i := 0
	for i < len(a.history) && a.history[i].at.Before(cutoff) {
		i++
	}
	a.history = a.history[i:]

	if len(a.history) == 0 {
		return 1
	}
	ok := 0
	for _, o := range a.history {
		if o.success {
			ok++
		}
	}
	return float64(ok) / float64(len(a.history))
}

func (a *Adaptive) ShouldReconnect(err error) bool { return defaultShouldReconnect(err) }

// Reset marks the most recent attempt a success, keeping the outcome window
// itself for future success-rate computation. The attempt counter belongs to
// the caller (the connection state machine) and is not touched here.
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) > 0 {
		a.history[len(a.history)-1].success = true
	}
}

var _ Strategy = (*Adaptive)(nil)
