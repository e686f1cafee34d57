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

// Custom adapts a pair of user closures to Strategy. ShouldReconnectFn, when
// nil, falls back to the built-in authentication-failure rule; it is never
// allowed to override that rule to true, since the spec pins it as a hard
// invariant.
type Custom struct {
	NextDelayFn       func(attempt int, lastErr error) (time.Duration, bool)
	ShouldReconnectFn func(err error) bool
	ResetFn           func()
}

func NewCustom(nextDelay func(int, error) (time.Duration, bool), shouldReconnect func(error) bool, reset func()) *Custom {
	return &Custom{NextDelayFn: nextDelay, ShouldReconnectFn: shouldReconnect, ResetFn: reset}
}

func (c *Custom) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	return c.NextDelayFn(attempt, lastErr)
}

func (c *Custom) ShouldReconnect(err error) bool {
	if !defaultShouldReconnect(err) {
		return false
	}
	if c.ShouldReconnectFn == nil {
		return true
	}
	return c.ShouldReconnectFn(err)
}

func (c *Custom) Reset() {
	if c.ResetFn != nil {
		c.ResetFn()
	}
}

var _ Strategy = (*Custom)(nil)
