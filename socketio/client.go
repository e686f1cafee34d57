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

package socketio

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	libeio "github.com/fengmingdev/nexuskit/engineio"
	librec "github.com/fengmingdev/nexuskit/reconnect"
)

// Config configures a Client.
type Config struct {
	Engineio libeio.Config
	// Strategy drives reconnection after the underlying Engine.IO transport
	// closes unexpectedly; nil disables reconnection entirely.
	Strategy librec.Strategy
}

type pendingBinary struct {
	packet Packet
	parts  [][]byte
	want   int
}

type client struct {
	cfg Config
	eio libeio.Client

	mu         sync.Mutex
	namespaces map[string]*namespace
	binary     *pendingBinary
	nextID     uint32
	attempt    int
	closed     bool
}

// NewClient returns an unconnected Client for cfg.
func NewClient(cfg Config) Client {
	return &client{
		cfg:        cfg,
		namespaces: make(map[string]*namespace),
	}
}

func (c *client) Connect(ctx context.Context) error {
	c.eio = libeio.NewClient(c.cfg.Engineio)
	c.eio.OnMessage(c.handleMessage)
	c.eio.OnClose(c.handleClose)

	if _, err := c.eio.Connect(ctx); err != nil {
		return err
	}

	c.attempt = 0
	if c.cfg.Strategy != nil {
		c.cfg.Strategy.Reset()
	}

	c.mu.Lock()
	nsList := make([]*namespace, 0, len(c.namespaces))
	for _, ns := range c.namespaces {
		nsList = append(nsList, ns)
	}
	c.mu.Unlock()

	for _, ns := range nsList {
		if err := c.sendConnect(ctx, ns.name); err != nil {
			return err
		}
	}
	return nil
}

// handleClose is invoked by the underlying Engine.IO transport once its
// connection drops. It drives reconnection through the configured
// Strategy, rebuilding namespace subscriptions on success, matching
// spec.md §4.K's delegation of reconnection to the ReconnectionController.
func (c *client) handleClose(err error) {
	c.mu.Lock()
	closed := c.closed
	strategy := c.cfg.Strategy
	c.mu.Unlock()

	if closed || strategy == nil {
		return
	}

	if !strategy.ShouldReconnect(err) {
		return
	}

	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()

	delay, ok := strategy.NextDelay(attempt, err)
	if !ok {
		return
	}

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}

		c.mu.Lock()
		again := c.closed
		c.mu.Unlock()
		if again {
			return
		}

		_ = c.Connect(context.Background())
	}()
}

func (c *client) sendConnect(ctx context.Context, ns string) error {
	return c.eio.Send(ctx, []byte(encodePacket(Packet{Type: Connect, Namespace: ns})))
}

func (c *client) Of(ns string) Namespace {
	if ns == "" {
		ns = "/"
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.namespaces[ns]; ok {
		return n
	}
	n := &namespace{name: ns, client: c, handlers: make(map[string]EventHandler), acks: make(map[uint32]AckFunc)}
	c.namespaces[ns] = n
	return n
}

func (c *client) handleMessage(raw []byte) {
	c.mu.Lock()
	if c.binary != nil {
		c.binary.parts = append(c.binary.parts, raw)
		done := len(c.binary.parts) >= c.binary.want
		var pkt Packet
		if done {
			pkt = c.binary.packet
			pkt.Data = substitutePlaceholders(pkt.Data, c.binary.parts)
			c.binary = nil
		}
		c.mu.Unlock()
		if done {
			c.route(pkt)
		}
		return
	}
	c.mu.Unlock()

	pkt, err := decodePacket(string(raw))
	if err != nil {
		return
	}

	if (pkt.Type == BinaryEvent || pkt.Type == BinaryAck) && pkt.Attachments > 0 {
		c.mu.Lock()
		c.binary = &pendingBinary{packet: pkt, want: pkt.Attachments}
		c.mu.Unlock()
		return
	}

	c.route(pkt)
}

func (c *client) route(pkt Packet) {
	c.mu.Lock()
	ns, ok := c.namespaces[pkt.Namespace]
	c.mu.Unlock()
	if !ok {
		return
	}

	switch pkt.Type {
	case Event, BinaryEvent:
		ns.dispatchEvent(pkt.Data)
	case Ack, BinaryAck:
		if pkt.ID != nil {
			ns.dispatchAck(*pkt.ID, pkt.Data)
		}
	case ConnectError:
		// surfaced to the caller via Namespace.On("connect_error", ...) if
		// registered; otherwise silently dropped, matching spec's silence on
		// unregistered handlers.
		ns.dispatchEvent(append([]byte(`["connect_error",`), append(pkt.Data, ']')...))
	}
}

// substitutePlaceholders walks the decoded JSON array and replaces every
// {"_placeholder":true,"num":k} object with the k-th binary part, by
// reference equality of structure (string substring replace on the raw
// encoded placeholder form, since json.RawMessage re-encoding would lose
// exact byte fidelity of the binary payloads it wraps).
func substitutePlaceholders(data []byte, parts [][]byte) []byte {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return data
	}

	for i, elem := range arr {
		var ph struct {
			Placeholder bool `json:"_placeholder"`
			Num         int  `json:"num"`
		}
		if json.Unmarshal(elem, &ph) == nil && ph.Placeholder && ph.Num < len(parts) {
			enc, _ := json.Marshal(parts[ph.Num])
			arr[i] = enc
		}
	}

	out, err := json.Marshal(arr)
	if err != nil {
		return data
	}
	return out
}

func (c *client) nextAckID() uint32 {
	return atomic.AddUint32(&c.nextID, 1)
}

func (c *client) Close() error {
	c.mu.Lock()
	c.closed = true
	eio := c.eio
	c.mu.Unlock()

	if eio == nil {
		return nil
	}
	return eio.Close()
}

var _ Client = (*client)(nil)
