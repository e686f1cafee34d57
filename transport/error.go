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

package transport

import (
	liberr "github.com/fengmingdev/nexuskit/errors"
)

// wrapConnect turns a dial/handshake failure into the declared error kind,
// preserving the cause as parent.
func wrapConnect(cause error) error {
	if cause == nil {
		return nil
	}
	return liberr.ConnectTimeout.Error(cause)
}

// wrapTransport turns a send/recv failure into TransportError, preserving
// the cause as parent.
func wrapTransport(cause error) error {
	if cause == nil {
		return nil
	}
	return liberr.TransportError.Error(cause)
}

// ErrNotConnected is returned by Send/Recv when called before Connect or
// after Close.
var ErrNotConnected = liberr.NotConnected.Error(nil)
