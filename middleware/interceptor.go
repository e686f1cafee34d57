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

import "context"

// InterceptorFunc validates or rewrites a flow. Returning a non-nil error
// rejects the flow; the pipeline stops and returns a MiddlewareError wrapping
// it (ValidationInterceptor's own rejection is an InterceptorRejected error).
type InterceptorFunc func(ctx context.Context, b []byte, mctx Context) ([]byte, error)

// InterceptorMiddleware runs an arbitrary validate-then-continue function
// on both directions, following the certificates package's
// validate-then-continue style (ApplyValidationPolicy) rather than a
// transform.
type InterceptorMiddleware struct {
	name       string
	priority   uint16
	onOutgoing InterceptorFunc
	onIncoming InterceptorFunc
}

// NewInterceptorMiddleware returns an InterceptorMiddleware calling outgoing
// and incoming on their respective directions. Either may be nil to pass
// the flow through unchecked in that direction.
func NewInterceptorMiddleware(name string, priority uint16, outgoing, incoming InterceptorFunc) *InterceptorMiddleware {
	return &InterceptorMiddleware{name: name, priority: priority, onOutgoing: outgoing, onIncoming: incoming}
}

func (i *InterceptorMiddleware) Name() string     { return i.name }
func (i *InterceptorMiddleware) Priority() uint16 { return i.priority }

func (i *InterceptorMiddleware) HandleOutgoing(ctx context.Context, b []byte, mctx Context) ([]byte, error) {
	if i.onOutgoing == nil {
		return b, nil
	}
	return i.onOutgoing(ctx, b, mctx)
}

func (i *InterceptorMiddleware) HandleIncoming(ctx context.Context, b []byte, mctx Context) ([]byte, error) {
	if i.onIncoming == nil {
		return b, nil
	}
	return i.onIncoming(ctx, b, mctx)
}

// ValidationInterceptor rejects any flow whose length falls outside
// [min, max]. max <= 0 means no upper bound.
func ValidationInterceptor(name string, priority uint16, min, max int) *InterceptorMiddleware {
	validate := func(_ context.Context, b []byte, _ Context) ([]byte, error) {
		if len(b) < min || (max > 0 && len(b) > max) {
			return nil, errRejected(name, "payload size outside allowed range")
		}
		return b, nil
	}
	return NewInterceptorMiddleware(name, priority, validate, validate)
}

var _ Middleware = (*InterceptorMiddleware)(nil)
