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

// Package reconnect implements the pluggable reconnection strategies driving
// the connection state machine's Reconnecting(attempt) loop.
package reconnect

import "time"

// Strategy decides whether and how long to wait before the next connection
// attempt after a non-client-initiated disconnect.
type Strategy interface {
	// NextDelay returns the delay before attempt (1-based) and whether to
	// retry at all. A false second return means give up: go terminal.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// ShouldReconnect reports whether err warrants any reconnection attempt
	// at all. Authentication failures must always return false here.
	ShouldReconnect(err error) bool

	// Reset is called on a successful connect. Fixed and
	// ExponentialWithJitter keep no state and do nothing; Adaptive records
	// the latest attempt as a success and keeps its outcome window.
	Reset()
}
