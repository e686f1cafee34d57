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
	"time"

	"golang.org/x/time/rate"
)

// RateUnit selects what a RateLimitMiddleware counts against its budget.
type RateUnit uint8

const (
	// RateRequests limits the number of outgoing flows per second.
	RateRequests RateUnit = iota
	// RateBytes limits outgoing bytes per second.
	RateBytes
)

// RateLimitConfig configures a RateLimitMiddleware.
type RateLimitConfig struct {
	Unit  RateUnit
	Limit float64 // tokens (requests, or bytes) replenished per second
	Burst int     // bucket capacity; defaults to Limit if 0

	// Blocking, when true, suspends the outgoing flow until a token frees up
	// instead of failing immediately with RateLimited.
	Blocking bool
}

// RateLimitMiddleware throttles outgoing flow using a token bucket
// (golang.org/x/time/rate), grounded on the same package the other example
// repos use for client-side request shaping.
type RateLimitMiddleware struct {
	name string
	cfg  RateLimitConfig
	lim  *rate.Limiter
}

// NewRateLimitMiddleware builds a RateLimitMiddleware from cfg.
func NewRateLimitMiddleware(name string, cfg RateLimitConfig) *RateLimitMiddleware {
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.Limit)
		if burst <= 0 {
			burst = 1
		}
	}
	return &RateLimitMiddleware{
		name: name,
		cfg:  cfg,
		lim:  rate.NewLimiter(rate.Limit(cfg.Limit), burst),
	}
}

func (r *RateLimitMiddleware) Name() string     { return r.name }
func (r *RateLimitMiddleware) Priority() uint16 { return 30 }

func (r *RateLimitMiddleware) cost(b []byte) int {
	if r.cfg.Unit == RateBytes {
		return len(b)
	}
	return 1
}

func (r *RateLimitMiddleware) HandleOutgoing(ctx context.Context, b []byte, _ Context) ([]byte, error) {
	n := r.cost(b)

	if r.cfg.Blocking {
		if err := r.lim.WaitN(ctx, n); err != nil {
			return nil, err
		}
		return b, nil
	}

	if !r.lim.AllowN(time.Now(), n) {
		return nil, errRateLimited(r.name)
	}
	return b, nil
}

func (r *RateLimitMiddleware) HandleIncoming(_ context.Context, b []byte, _ Context) ([]byte, error) {
	// Rate limiting governs what this client sends, not what it receives.
	return b, nil
}

var _ Middleware = (*RateLimitMiddleware)(nil)
