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
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	liberr "github.com/fengmingdev/nexuskit/errors"
)

// recvBufferSize is the chunk size used for a single Recv call.
const recvBufferSize = 64 * 1024

// TCPConfig configures a plain TCP transport.
type TCPConfig struct {
	Host    string
	Port    uint16
	Timeout time.Duration
	Dialer  Dialer
}

type tcpTransport struct {
	cfg  TCPConfig
	mu   sync.Mutex
	conn net.Conn
}

// NewTCP returns a Transport dialing host:port over plain TCP.
func NewTCP(cfg TCPConfig) Transport {
	if cfg.Dialer == nil {
		cfg.Dialer = NewDialer()
	}
	return &tcpTransport{cfg: cfg}
}

func (t *tcpTransport) Connect(ctx context.Context) error {
	if t.cfg.Host == "" || t.cfg.Port == 0 {
		return liberr.InvalidEndpoint.Error(nil)
	}

	timeout := t.cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(int(t.cfg.Port)))

	conn, err := t.cfg.Dialer.Dial(ctx, "tcp", addr, timeout)
	if err != nil {
		return wrapConnect(err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	return nil
}

func (t *tcpTransport) Send(ctx context.Context, b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	} else {
		_ = conn.SetWriteDeadline(time.Time{})
	}

	_, err := conn.Write(b)
	if err != nil {
		return wrapTransport(err)
	}
	return nil
}

func (t *tcpTransport) Recv(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(dl)
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	buf := make([]byte, recvBufferSize)
	n, err := conn.Read(buf)
	if n > 0 {
		return buf[:n], err
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (t *tcpTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *tcpTransport) LocalAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

func (t *tcpTransport) RemoteAddr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.RemoteAddr()
}
