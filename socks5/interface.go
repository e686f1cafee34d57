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

// Package socks5 implements the client side of RFC 1928 (CONNECT only) plus
// RFC 1929 username/password auth, as a transport.Transport that wraps an
// inner transport already connected to the proxy.
package socks5

import "context"

// Config holds the CONNECT target and optional credentials.
type Config struct {
	// TargetHost/TargetPort is the address the proxy is asked to CONNECT to.
	TargetHost string
	TargetPort uint16

	// Username/Password enable RFC 1929 auth when non-empty. Left empty,
	// only the no-auth method is offered.
	Username string
	Password string
}

// Negotiator drives the SOCKS5 handshake over an already-connected
// io-capable proxy link.
type Negotiator interface {
	// Negotiate performs greeting, optional auth, and the CONNECT request.
	// On success the underlying link is a transparent tunnel to the target.
	Negotiate(ctx context.Context) error
}
