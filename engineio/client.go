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

package engineio

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// client is the default Client, a thin cooperative loop over a gobwas/ws
// connection.
type client struct {
	cfg  Config
	conn net.Conn

	mu        sync.Mutex
	hs        Handshake
	closed    bool
	lastRecv  time.Time
	onMessage func([]byte)
	onClose   func(error)

	stop chan struct{}
}

// NewClient returns an unconnected Client for cfg.
func NewClient(cfg Config) Client {
	return &client{cfg: cfg, stop: make(chan struct{})}
}

func (c *client) Connect(ctx context.Context) (Handshake, error) {
	target, err := buildURL(c.cfg)
	if err != nil {
		return Handshake{}, errHandshake(err)
	}

	conn, _, _, err := ws.Dial(ctx, target)
	if err != nil {
		return Handshake{}, errHandshake(err)
	}
	c.conn = conn

	raw, _, err := wsutil.ReadServerData(conn)
	if err != nil {
		return Handshake{}, errHandshake(err)
	}

	pkt, err := decodePacket(raw)
	if err != nil {
		return Handshake{}, err
	}
	if pkt.Type != PacketOpen {
		return Handshake{}, errHandshake(nil)
	}

	var hs Handshake
	if err := json.Unmarshal(pkt.Data, &hs); err != nil {
		return Handshake{}, errHandshake(err)
	}

	c.mu.Lock()
	c.hs = hs
	c.mu.Unlock()

	go c.readLoop()
	go c.pingLoop(hs)

	return hs, nil
}

func (c *client) readLoop() {
	for {
		raw, _, err := wsutil.ReadServerData(c.conn)
		if err != nil {
			c.teardown(err)
			return
		}

		pkt, err := decodePacket(raw)
		if err != nil {
			c.teardown(err)
			return
		}

		c.mu.Lock()
		c.lastRecv = time.Now()
		c.mu.Unlock()

		switch pkt.Type {
		case PacketPing:
			_ = c.writePacket(Packet{Type: PacketPong})
		case PacketMessage:
			c.mu.Lock()
			h := c.onMessage
			c.mu.Unlock()
			if h != nil {
				h(pkt.Data)
			}
		case PacketClose:
			c.teardown(nil)
			return
		case PacketUpgrade, PacketNoop:
			// ignored per §4.J
		}

		select {
		case <-c.stop:
			return
		default:
		}
	}
}

// pingLoop is the client-initiated heartbeat: send packet type 2 every
// ping_interval, and fail the connection if nothing arrives within
// ping_timeout of the next expected tick.
func (c *client) pingLoop(hs Handshake) {
	interval := time.Duration(hs.PingInterval) * time.Millisecond
	timeout := time.Duration(hs.PingTimeout) * time.Millisecond
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.mu.Lock()
	c.lastRecv = time.Now()
	c.mu.Unlock()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.writePacket(Packet{Type: PacketPing}); err != nil {
				c.teardown(err)
				return
			}

			c.mu.Lock()
			since := time.Since(c.lastRecv)
			c.mu.Unlock()
			if since > interval+timeout {
				c.teardown(errPingTimeout())
				return
			}
		}
	}
}

func (c *client) writePacket(p Packet) error {
	return wsutil.WriteClientMessage(c.conn, ws.OpText, encodePacket(p))
}

func (c *client) Send(_ context.Context, data []byte) error {
	return c.writePacket(Packet{Type: PacketMessage, Data: data})
}

func (c *client) OnMessage(h func([]byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = h
}

func (c *client) OnClose(h func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = h
}

func (c *client) teardown(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	h := c.onClose
	c.mu.Unlock()

	close(c.stop)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if h != nil {
		h(err)
	}
}

func (c *client) Close() error {
	c.teardown(nil)
	return nil
}

var _ Client = (*client)(nil)
