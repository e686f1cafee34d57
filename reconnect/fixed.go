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

import "time"

// Fixed reconnects at a constant interval, capped by MaxAttempts (0 = no
// cap).
type Fixed struct {
	Interval    time.Duration
	MaxAttempts int
}

func NewFixed(interval time.Duration, maxAttempts int) *Fixed {
	return &Fixed{Interval: interval, MaxAttempts: maxAttempts}
}

func (f *Fixed) NextDelay(attempt int, _ error) (time.Duration, bool) {
	if f.MaxAttempts > 0 && attempt > f.MaxAttempts {
		return 0, false
	}
	return f.Interval, true
}

func (f *Fixed) ShouldReconnect(err error) bool { return defaultShouldReconnect(err) }

func (f *Fixed) Reset() {}

var _ Strategy = (*Fixed)(nil)
