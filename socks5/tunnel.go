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

package socks5

import (
	"bytes"
	"context"
	"net"

	"github.com/fengmingdev/nexuskit/transport"
)

const (
	ver5       = 0x05
	methodNone = 0x00
	methodUP   = 0x02
	methodFail = 0xFF

	cmdConnect = 0x01

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04
)

// Tunnel wraps an inner Transport already reaching the proxy; Connect drives
// the inner connect then the SOCKS5 handshake, after which Send/Recv are a
// transparent pass-through to the target.
type Tunnel struct {
	inner transport.Transport
	cfg   Config

	read bytes.Buffer
}

// New wraps inner (pointed at the proxy address) with a SOCKS5 CONNECT
// negotiator targeting cfg.TargetHost:TargetPort.
func New(inner transport.Transport, cfg Config) transport.Transport {
	return &Tunnel{inner: inner, cfg: cfg}
}

func (t *Tunnel) Connect(ctx context.Context) error {
	if err := t.inner.Connect(ctx); err != nil {
		return err
	}
	if err := t.negotiate(ctx); err != nil {
		_ = t.inner.Close()
		return err
	}
	return nil
}

func (t *Tunnel) negotiate(ctx context.Context) error {
	methods := []byte{methodNone}
	if t.cfg.Username != "" {
		methods = []byte{methodUP, methodNone}
	}

	greeting := make([]byte, 0, 2+len(methods))
	greeting = append(greeting, ver5, byte(len(methods)))
	greeting = append(greeting, methods...)
	if err := t.inner.Send(ctx, greeting); err != nil {
		return err
	}

	resp, err := t.readExact(ctx, 2)
	if err != nil {
		return err
	}
	if resp[0] != ver5 {
		return errNegotiation("unexpected SOCKS version in method selection")
	}
	switch resp[1] {
	case methodNone:
		// proceed directly to the request.
	case methodUP:
		if err := t.authUserPass(ctx); err != nil {
			return err
		}
	case methodFail:
		return errNegotiation("no acceptable authentication method")
	default:
		return errNegotiation("unsupported authentication method selected")
	}

	return t.sendConnect(ctx)
}

func (t *Tunnel) authUserPass(ctx context.Context) error {
	u, p := []byte(t.cfg.Username), []byte(t.cfg.Password)
	if len(u) > 255 || len(p) > 255 {
		return errAuth("username or password too long")
	}

	req := make([]byte, 0, 3+len(u)+len(p))
	req = append(req, 0x01, byte(len(u)))
	req = append(req, u...)
	req = append(req, byte(len(p)))
	req = append(req, p...)

	if err := t.inner.Send(ctx, req); err != nil {
		return err
	}

	resp, err := t.readExact(ctx, 2)
	if err != nil {
		return err
	}
	if resp[1] != 0x00 {
		return errAuth("proxy rejected username/password credentials")
	}
	return nil
}

func (t *Tunnel) sendConnect(ctx context.Context) error {
	req := []byte{ver5, cmdConnect, 0x00}
	req = append(req, encodeAddr(t.cfg.TargetHost)...)
	req = append(req, byte(t.cfg.TargetPort>>8), byte(t.cfg.TargetPort))

	if err := t.inner.Send(ctx, req); err != nil {
		return err
	}

	head, err := t.readExact(ctx, 4)
	if err != nil {
		return err
	}
	if head[0] != ver5 {
		return errNegotiation("unexpected SOCKS version in reply")
	}
	if head[1] != 0x00 {
		return errNegotiation(replyReason(head[1]))
	}

	var addrLen int
	switch head[3] {
	case atypIPv4:
		addrLen = net.IPv4len
	case atypIPv6:
		addrLen = net.IPv6len
	case atypDomain:
		lb, err := t.readExact(ctx, 1)
		if err != nil {
			return err
		}
		addrLen = int(lb[0])
	default:
		return errNegotiation("unsupported address type in reply")
	}

	// BND.ADDR + BND.PORT: consumed and discarded, the tunnel is transparent.
	if _, err := t.readExact(ctx, addrLen+2); err != nil {
		return err
	}

	return nil
}

// encodeAddr picks ATYP=1/4 for a parseable IPv4/IPv6 literal, ATYP=3
// (length-prefixed domain) otherwise.
func encodeAddr(host string) []byte {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return append([]byte{atypIPv4}, v4...)
		}
		return append([]byte{atypIPv6}, ip.To16()...)
	}
	b := []byte(host)
	out := make([]byte, 0, 2+len(b))
	out = append(out, atypDomain, byte(len(b)))
	return append(out, b...)
}

// readExact blocks until n bytes have been read from the inner transport,
// buffering any surplus bytes received past the requested length.
func (t *Tunnel) readExact(ctx context.Context, n int) ([]byte, error) {
	for t.read.Len() < n {
		chunk, err := t.inner.Recv(ctx)
		if err != nil {
			return nil, err
		}
		t.read.Write(chunk)
	}
	out := make([]byte, n)
	_, _ = t.read.Read(out)
	return out, nil
}

func (t *Tunnel) Send(ctx context.Context, b []byte) error {
	return t.inner.Send(ctx, b)
}

func (t *Tunnel) Recv(ctx context.Context) ([]byte, error) {
	if t.read.Len() > 0 {
		b := make([]byte, t.read.Len())
		_, _ = t.read.Read(b)
		return b, nil
	}
	return t.inner.Recv(ctx)
}

func (t *Tunnel) Close() error { return t.inner.Close() }

func (t *Tunnel) LocalAddr() net.Addr  { return t.inner.LocalAddr() }
func (t *Tunnel) RemoteAddr() net.Addr { return t.inner.RemoteAddr() }
