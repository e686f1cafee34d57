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

// Package middleware implements the bidirectional middleware pipeline and
// its built-ins: cache, compression, rate limiting, logging and an
// interceptor chain.
package middleware

import "context"

// Context carries per-flow metadata through a pipeline application.
type Context struct {
	ConnectionID string
	Endpoint     string
	Direction    Direction
	Meta         map[string]any
}

// Direction discriminates outgoing from incoming flow.
type Direction uint8

const (
	Outgoing Direction = iota
	Incoming
)

// Middleware transforms bytes flowing through the pipeline in both
// directions. Lower Priority runs first on outgoing and last on incoming.
type Middleware interface {
	Name() string
	Priority() uint16
	HandleOutgoing(ctx context.Context, b []byte, mctx Context) ([]byte, error)
	HandleIncoming(ctx context.Context, b []byte, mctx Context) ([]byte, error)
}

// Pipeline is an ordered, mutable chain of Middleware.
type Pipeline interface {
	Add(m Middleware)
	Remove(name string)
	List() []Middleware

	// ApplyOutgoing/ApplyIncoming run a snapshot of the chain taken at call
	// start, so concurrent Add/Remove never affects an in-flight flow.
	ApplyOutgoing(ctx context.Context, b []byte, mctx Context) ([]byte, error)
	ApplyIncoming(ctx context.Context, b []byte, mctx Context) ([]byte, error)
}
