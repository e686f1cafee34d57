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
	"math/rand/v2"
	"time"
)

// ExponentialWithJitter implements delay = min(initial * multiplier^(attempt-1),
// max_delay) for the 1-based attempt, so the first delay is initial,
// optionally perturbed by ±25% uniform jitter and clamped to
// >= 0. math/rand/v2 is stdlib here (see DESIGN.md: jitter needs no
// cryptographic strength, and none of the example repos pull in a
// third-party RNG for backoff jitter).
type ExponentialWithJitter struct {
	Initial     time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	Jitter      bool
	MaxAttempts int
}

func NewExponentialWithJitter(initial time.Duration, multiplier float64, maxDelay time.Duration, jitter bool, maxAttempts int) *ExponentialWithJitter {
	return &ExponentialWithJitter{
		Initial:     initial,
		Multiplier:  multiplier,
		MaxDelay:    maxDelay,
		Jitter:      jitter,
		MaxAttempts: maxAttempts,
	}
}

func (e *ExponentialWithJitter) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if e.MaxAttempts > 0 && attempt > e.MaxAttempts {
		return 0, false
	}

	delay := float64(e.Initial) * math.Pow(e.Multiplier, float64(attempt-1))
	if e.MaxDelay > 0 && delay > float64(e.MaxDelay) {
		delay = float64(e.MaxDelay)
	}

	if e.Jitter {
		// uniform noise in [-25%, +25%]
		noise := (rand.Float64()*2 - 1) * 0.25
		delay += delay * noise
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay), true
}

func (e *ExponentialWithJitter) ShouldReconnect(err error) bool { return defaultShouldReconnect(err) }

func (e *ExponentialWithJitter) Reset() {}

var _ Strategy = (*ExponentialWithJitter)(nil)
