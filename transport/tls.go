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
	"crypto/tls"
	"net"
	"sync"
	"time"

	libcrt "github.com/fengmingdev/nexuskit/certificates"
	liberr "github.com/fengmingdev/nexuskit/errors"
)

// TlsInfo describes a completed TLS handshake.
type TlsInfo struct {
	Version      uint16
	CipherSuite  uint16
	PeerCertDER  []byte
	NegotiatedProto string
}

// TLSConfig configures the TLS layer wrapping an inner Transport.
type TLSConfig struct {
	ServerName      string
	ALPN            []string
	Validation      libcrt.ValidationPolicy
	Pins            [][32]byte
	AllowSelfSigned bool
	Base            libcrt.TLSConfig // optional, owns cert/CA/cipher/version config
}

type tlsTransport struct {
	inner Transport
	cfg   TLSConfig

	mu   sync.Mutex
	conn *tls.Conn
	info TlsInfo
}

// TLSTransport is the Transport exposed by NewTLS, adding access to the
// negotiated handshake parameters.
type TLSTransport interface {
	Transport
	Info() TlsInfo
}

// NewTLS wraps inner with a TLS handshake layer. inner must not be connected
// yet; Connect drives inner.Connect then the TLS handshake on top of it.
func NewTLS(inner Transport, cfg TLSConfig) TLSTransport {
	return &tlsTransport{inner: inner, cfg: cfg}
}

func (t *tlsTransport) Connect(ctx context.Context) error {
	if err := t.inner.Connect(ctx); err != nil {
		return err
	}

	raw := &connAdapter{t: t.inner, ctx: ctx}

	var tlsCfg *tls.Config
	if t.cfg.Base != nil {
		tlsCfg = t.cfg.Base.TlsConfig(t.cfg.ServerName)
	} else {
		tlsCfg = &tls.Config{ServerName: t.cfg.ServerName}
	}
	if len(t.cfg.ALPN) > 0 {
		tlsCfg.NextProtos = t.cfg.ALPN
	}

	libcrt.ApplyValidationPolicy(tlsCfg, t.cfg.Validation, t.cfg.Pins, t.cfg.AllowSelfSigned)

	conn := tls.Client(raw, tlsCfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		_ = t.inner.Close()
		return liberr.TlsHandshake.Error(err)
	}

	state := conn.ConnectionState()
	var der []byte
	if len(state.PeerCertificates) > 0 {
		der = state.PeerCertificates[0].Raw
	}

	t.mu.Lock()
	t.conn = conn
	t.info = TlsInfo{
		Version:         state.Version,
		CipherSuite:     state.CipherSuite,
		PeerCertDER:     der,
		NegotiatedProto: state.NegotiatedProtocol,
	}
	t.mu.Unlock()

	return nil
}

// Info returns the negotiated TLS parameters. Zero value before Connect.
func (t *tlsTransport) Info() TlsInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.info
}

func (t *tlsTransport) Send(ctx context.Context, b []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	_, err := conn.Write(b)
	if err != nil {
		return wrapTransport(err)
	}
	return nil
}

func (t *tlsTransport) Recv(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
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

func (t *tlsTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	return t.inner.Close()
}

func (t *tlsTransport) LocalAddr() net.Addr  { return t.inner.LocalAddr() }
func (t *tlsTransport) RemoteAddr() net.Addr { return t.inner.RemoteAddr() }

// connAdapter exposes a transport.Transport as a net.Conn so crypto/tls can
// drive it; ctx carries the caller's deadline/cancellation into each Send
// and Recv call tls.Conn makes internally.
type connAdapter struct {
	t   Transport
	ctx context.Context

	mu  sync.Mutex
	buf []byte
}

func (c *connAdapter) Read(p []byte) (int, error) {
	c.mu.Lock()
	if len(c.buf) > 0 {
		n := copy(p, c.buf)
		c.buf = c.buf[n:]
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	b, err := c.t.Recv(c.ctx)
	if err != nil {
		return 0, err
	}
	n := copy(p, b)
	if n < len(b) {
		c.mu.Lock()
		c.buf = append(c.buf, b[n:]...)
		c.mu.Unlock()
	}
	return n, nil
}

func (c *connAdapter) Write(p []byte) (int, error) {
	if err := c.t.Send(c.ctx, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *connAdapter) Close() error                      { return c.t.Close() }
func (c *connAdapter) LocalAddr() net.Addr               { return c.t.LocalAddr() }
func (c *connAdapter) RemoteAddr() net.Addr              { return c.t.RemoteAddr() }
func (c *connAdapter) SetDeadline(t time.Time) error      { return nil }
func (c *connAdapter) SetReadDeadline(t time.Time) error  { return nil }
func (c *connAdapter) SetWriteDeadline(t time.Time) error { return nil }
