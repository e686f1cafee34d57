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

// Package transport provides the byte-stream abstraction every connection
// stack is composed from: a plain TCP transport at the bottom, with TLS and
// SOCKS5 each wrapping an inner Transport and translating calls. Callers
// never branch on the concrete stack shape; they only see Transport.
package transport

import (
	"context"
	"net"
	"time"
)

// Transport is a byte-stream abstraction every layer of a connection stack
// implements: connect, send, recv, close. All operations may block and must
// observe ctx cancellation.
type Transport interface {
	// Connect dials the endpoint, or completes the handshake of a layer that
	// wraps an already-connected inner Transport. Returns
	// errors.ConnectTimeout on ctx deadline.
	Connect(ctx context.Context) error

	// Send writes b in full or returns errors.TransportError.
	Send(ctx context.Context, b []byte) error

	// Recv reads the next chunk of bytes. Returns io.EOF when the peer
	// closed the stream cleanly.
	Recv(ctx context.Context) ([]byte, error)

	// Close tears the transport down. Idempotent.
	Close() error

	// LocalAddr and RemoteAddr expose the underlying net.Addr, nil before
	// Connect or after Close.
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Dialer abstracts the creation of the bottommost transport of a stack, so
// tests can substitute a fake without a real socket.
type Dialer interface {
	Dial(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error)
}

// netDialer is the default Dialer, backed by net.Dialer.
type netDialer struct{}

// NewDialer returns the default Dialer, backed by the standard library.
func NewDialer() Dialer {
	return netDialer{}
}

func (netDialer) Dial(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, network, address)
}
