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

package connection

import (
	"context"
	"errors"
	"sync"
	"time"

	liberr "github.com/fengmingdev/nexuskit/errors"
	libhb "github.com/fengmingdev/nexuskit/heartbeat"
	liblog "github.com/fengmingdev/nexuskit/logger"
	libmdw "github.com/fengmingdev/nexuskit/middleware"
	libprt "github.com/fengmingdev/nexuskit/protocol"
	libtrn "github.com/fengmingdev/nexuskit/transport"
)

// conn is the default Connection: single owner per id, serialising all
// mutable state behind mu per spec.md's cooperative-ownership model.
type conn struct {
	cfg Configuration
	log liblog.Logger

	mu       sync.Mutex
	state    State
	transp   libtrn.Transport
	hb       libhb.Manager
	pending  *libprt.PendingTable
	attempt  int
	cancel   context.CancelFunc

	handlersMu sync.Mutex
	handlers   map[EventKind][]Handler
}

// New builds a Connection from cfg. The connection starts Disconnected;
// call Connect to drive the transport stack up.
func New(cfg Configuration) Connection {
	if cfg.Pipeline == nil {
		cfg.Pipeline = libmdw.NewPipeline()
	}
	if cfg.Logger == nil {
		cfg.Logger = liblog.New(liblog.InfoLevel)
	}
	return &conn{
		cfg:      cfg,
		log:      cfg.Logger,
		state:    Disconnected,
		handlers: make(map[EventKind][]Handler),
	}
}

func (c *conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition enforces spec.md §3's transition table and fans out
// onStateChange. Caller must hold mu.
func (c *conn) transitionLocked(to State) error {
	valid := map[State][]State{
		Disconnected:  {Connecting},
		Connecting:    {Connected, Disconnected},
		Connected:     {Disconnecting, Reconnecting},
		Reconnecting:  {Connecting, Disconnected},
		Disconnecting: {Disconnected},
	}

	from := c.state
	ok := false
	for _, s := range valid[from] {
		if s == to {
			ok = true
			break
		}
	}
	if !ok {
		return errInvalidTransition(from, to)
	}

	c.state = to
	if c.cfg.Hooks.OnStateChange != nil {
		c.cfg.Hooks.OnStateChange(from, to)
	}
	c.fan(EventStateChange, [2]State{from, to})
	return nil
}

func (c *conn) fan(kind EventKind, payload any) {
	c.handlersMu.Lock()
	hs := append([]Handler(nil), c.handlers[kind]...)
	c.handlersMu.Unlock()

	for _, h := range hs {
		h(kind, payload)
	}
}

func (c *conn) On(kind EventKind, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], h)
}

// Connect drives TCP → [SOCKS5] → [TLS], then starts the heartbeat manager
// and the reader task, per spec.md §4.I.
func (c *conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if err := c.transitionLocked(Connecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	if c.cfg.Hooks.OnConnecting != nil {
		c.cfg.Hooks.OnConnecting()
	}

	connectCtx := ctx
	var cancelTimeout context.CancelFunc
	if c.cfg.ConnectTimeout > 0 {
		connectCtx, cancelTimeout = context.WithTimeout(ctx, c.cfg.ConnectTimeout.Time())
		defer cancelTimeout()
	}

	transp := buildStack(c.cfg)
	if err := transp.Connect(connectCtx); err != nil {
		c.mu.Lock()
		_ = c.transitionLocked(Disconnected)
		c.mu.Unlock()
		c.reportError(err)
		return err
	}

	readerCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.transp = transp
	c.cancel = cancel
	c.pending = libprt.NewPendingTable(time.Second)
	if err := c.transitionLocked(Connected); err != nil {
		c.mu.Unlock()
		cancel()
		return err
	}
	c.mu.Unlock()

	if c.cfg.Hooks.OnConnected != nil {
		c.cfg.Hooks.OnConnected()
	}

	if c.cfg.Heartbeat.Enabled {
		c.startHeartbeat()
	}

	go c.readerLoop(readerCtx)

	if c.cfg.Strategy != nil {
		c.cfg.Strategy.Reset()
	}
	c.mu.Lock()
	c.attempt = 0
	c.mu.Unlock()

	return nil
}

func (c *conn) startHeartbeat() {
	hbCfg := libhb.Config{
		Mode:     c.cfg.Heartbeat.Mode,
		Interval: c.cfg.Heartbeat.Interval,
		Timeout:  c.cfg.Heartbeat.Timeout,
		Adaptive: c.cfg.Heartbeat.Adaptive,
		Window:   c.cfg.Heartbeat.Window,
		MaxDelay: c.cfg.Heartbeat.MaxDelay,
		OnTimeout: func() {
			_ = c.Disconnect(HeartbeatTimeout)
		},
	}
	c.mu.Lock()
	c.hb = libhb.NewManager(hbCfg, c)
	hb := c.hb
	c.mu.Unlock()
	hb.Start()
}

// SendHeartbeat implements heartbeat.Sender: writes a heartbeat request
// frame directly to the transport, bypassing the application middleware
// pipeline (control-plane traffic).
func (c *conn) SendHeartbeat() (uint32, error) {
	c.mu.Lock()
	transp, adapter := c.transp, c.cfg.Adapter
	c.mu.Unlock()

	if transp == nil {
		return 0, errNotConnected
	}
	if adapter == nil {
		return 0, errNoProtocolAdapter
	}

	frame := adapter.CreateHeartbeat()
	if err := transp.Send(context.Background(), frame); err != nil {
		return 0, err
	}
	return libprt.HeartbeatFunctionID, nil
}

// SendHeartbeatAck implements heartbeat.Sender.
func (c *conn) SendHeartbeatAck(requestID uint32) error {
	c.mu.Lock()
	transp, adapter := c.transp, c.cfg.Adapter
	c.mu.Unlock()

	if transp == nil {
		return errNotConnected
	}
	if adapter == nil {
		return errNoProtocolAdapter
	}

	h := libprt.Header{TypeFlags: libprt.FlagHeartbeat, FunctionID: libprt.HeartbeatFunctionID, RequestID: requestID}
	return transp.Send(context.Background(), adapter.CreateHeartbeatAck(h))
}

func (c *conn) HeartbeatStats() libhb.Stats {
	c.mu.Lock()
	hb := c.hb
	c.mu.Unlock()
	if hb == nil {
		return libhb.Stats{}
	}
	return hb.Stats()
}

// Send runs the outgoing pipeline over raw bytes and writes them to the
// transport. No protocol framing is applied here, only to typed messages
// sent via SendMessage (see stack.go / DESIGN.md on this layering choice).
func (c *conn) Send(ctx context.Context, b []byte) error {
	c.mu.Lock()
	state, transp, pipeline := c.state, c.transp, c.cfg.Pipeline
	c.mu.Unlock()

	if state != Connected {
		return errNotConnected
	}

	out, err := pipeline.ApplyOutgoing(ctx, b, libmdw.Context{ConnectionID: c.cfg.ID, Endpoint: c.cfg.Endpoint.Host})
	if err != nil {
		return err
	}

	sendCtx, cancel := c.withIOTimeout(ctx)
	defer cancel()
	return transp.Send(sendCtx, out)
}

// withIOTimeout derives a per-call deadline from Configuration.IOTimeout when
// set, mirroring ConnectTimeout's use in Connect. Callers must always invoke
// the returned cancel func, even when no deadline was applied.
func (c *conn) withIOTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.IOTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.IOTimeout.Time())
}

// SendMessage encodes msg via the configured adapter, runs the outgoing
// pipeline, writes the frame, registers a pending-table waiter, and blocks
// until the matching response arrives or timeout elapses.
func (c *conn) SendMessage(ctx context.Context, msg any, functionID uint32, timeout time.Duration) ([]byte, uint32, error) {
	c.mu.Lock()
	state, transp, adapter, pipeline, pending := c.state, c.transp, c.cfg.Adapter, c.cfg.Pipeline, c.pending
	c.mu.Unlock()

	if adapter == nil {
		return nil, 0, errNoProtocolAdapter
	}
	if state != Connected {
		return nil, 0, errNotConnected
	}

	framed, reqID, err := adapter.Encode(ctx, msg, libprt.Context{FunctionID: functionID})
	if err != nil {
		return nil, 0, err
	}

	out, err := pipeline.ApplyOutgoing(ctx, framed, libmdw.Context{ConnectionID: c.cfg.ID, Endpoint: c.cfg.Endpoint.Host})
	if err != nil {
		var hit *libmdw.ErrCacheHit
		if errors.As(err, &hit) {
			return hit.Body, reqID, nil
		}
		return nil, 0, err
	}

	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	waiter := pending.Register(reqID, deadline)

	sendCtx, cancel := c.withIOTimeout(ctx)
	sendErr := transp.Send(sendCtx, out)
	cancel()
	if sendErr != nil {
		return nil, reqID, sendErr
	}

	var timeoutC <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timeoutC = t.C
	}

	select {
	case res := <-waiter:
		if res.err != nil {
			return nil, reqID, res.err
		}
		if cache := cacheMiddlewareIn(pipeline.List()); cache != nil {
			cache.StoreResponse(framed, res.body)
		}
		return res.body, reqID, nil
	case <-timeoutC:
		return nil, reqID, liberr.RequestTimeout.Error(nil)
	case <-ctx.Done():
		return nil, reqID, ctx.Err()
	}
}

// cacheMiddlewareIn locates the CacheMiddleware in an outgoing pipeline
// snapshot, if one was configured, so SendMessage can populate it after a
// genuine round trip and consult it for a short-circuit on the next call.
func cacheMiddlewareIn(chain []libmdw.Middleware) *libmdw.CacheMiddleware {
	for _, m := range chain {
		if c, ok := m.(*libmdw.CacheMiddleware); ok {
			return c
		}
	}
	return nil
}

// Receive is unsupported: this adapter operates strictly in
// request/response + notification mode, not a pull-based stream mode.
func (c *conn) Receive(_ context.Context, _ time.Duration) ([]byte, error) {
	return nil, errUnsupportedOperation
}

func (c *conn) reportError(err error) {
	if c.cfg.Hooks.OnError != nil {
		c.cfg.Hooks.OnError(err)
	}
	c.fan(EventError, err)
}

// Disconnect tears down the stack in reverse order, fails all pending
// requests with NotConnected, stops the heartbeat manager, and either
// terminates or schedules a reconnection attempt depending on reason and
// the configured Strategy. Idempotent: calling it from Disconnected is a
// no-op.
func (c *conn) Disconnect(reason DisconnectReason) error {
	c.mu.Lock()
	if c.state == Disconnected {
		c.mu.Unlock()
		return nil
	}
	if err := c.transitionLocked(Disconnecting); err != nil {
		c.mu.Unlock()
		return err
	}
	transp, hb, pending, cancel := c.transp, c.hb, c.pending, c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if hb != nil {
		hb.Stop()
	}
	if pending != nil {
		pending.FailAll(errNotConnected)
		pending.Close()
	}
	if transp != nil {
		_ = transp.Close()
	}

	if c.cfg.Hooks.OnDisconnected != nil {
		c.cfg.Hooks.OnDisconnected(reason)
	}
	c.fan(EventControl, reason)

	c.mu.Lock()
	c.transp, c.hb, c.pending, c.cancel = nil, nil, nil, nil
	c.mu.Unlock()

	if reason == ClientInitiated || c.cfg.Strategy == nil {
		c.mu.Lock()
		_ = c.transitionLocked(Disconnected)
		c.mu.Unlock()
		return nil
	}

	return c.maybeReconnect(reason)
}

// maybeReconnect implements §4.H's controller behaviour: on a non-client
// disconnect, ask the strategy whether and how long to wait before the next
// Connecting attempt.
func (c *conn) maybeReconnect(reason DisconnectReason) error {
	cause := c.reasonToError(reason)

	if !c.cfg.Strategy.ShouldReconnect(cause) {
		c.mu.Lock()
		_ = c.transitionLocked(Disconnected)
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	c.attempt++
	attempt := c.attempt
	c.mu.Unlock()
	delay, ok := c.cfg.Strategy.NextDelay(attempt, cause)
	if !ok {
		c.mu.Lock()
		_ = c.transitionLocked(Disconnected)
		c.mu.Unlock()
		return nil
	}

	c.mu.Lock()
	if err := c.transitionLocked(Reconnecting); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		<-timer.C

		c.mu.Lock()
		_ = c.transitionLocked(Connecting)
		c.mu.Unlock()

		if err := c.Connect(context.Background()); err != nil {
			c.reportError(err)
		}
	}()

	return nil
}

func (c *conn) reasonToError(reason DisconnectReason) error {
	switch reason {
	case HeartbeatTimeout:
		return liberr.HeartbeatTimeout.Error(nil)
	case NetworkLost:
		return liberr.Disconnected.Error(nil)
	default:
		return liberr.Disconnected.Error(nil)
	}
}

// readerLoop is the reader task: framer yields frames, the incoming
// pipeline runs over each framed byte slice, then the adapter demuxes into
// ProtocolEvents dispatched to pending waiters or notification handlers.
func (c *conn) readerLoop(ctx context.Context) {
	c.mu.Lock()
	transp, adapter, pipeline, pending := c.transp, c.cfg.Adapter, c.cfg.Pipeline, c.pending
	c.mu.Unlock()

	framer := libprt.NewFramer(0)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := transp.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.reportError(err)
			_ = c.Disconnect(NetworkLost)
			return
		}

		frames, err := framer.Feed(chunk)
		if err != nil {
			c.reportError(err)
			_ = c.Disconnect(ReasonError)
			return
		}

		for _, fr := range frames {
			framed := libprt.EncodeFrame(fr.Header, fr.Body)

			in, err := pipeline.ApplyIncoming(ctx, framed, libmdw.Context{ConnectionID: c.cfg.ID, Endpoint: c.cfg.Endpoint.Host})
			if err != nil {
				c.reportError(err)
				continue
			}

			if adapter == nil {
				continue
			}

			events, err := adapter.HandleIncoming(in)
			if err != nil {
				c.reportError(err)
				continue
			}

			for _, ev := range events {
				c.dispatch(ev, pending)
			}
		}
	}
}

func (c *conn) dispatch(ev libprt.ProtocolEvent, pending *libprt.PendingTable) {
	switch ev.Kind {
	case libprt.EventResponse:
		pending.Resolve(ev.RequestID, ev.Code, ev.Body)
	case libprt.EventNotification:
		c.fan(EventMessage, ev)
	case libprt.EventHeartbeatAck:
		c.mu.Lock()
		hb := c.hb
		c.mu.Unlock()
		if hb != nil {
			hb.OnAck(ev.RequestID, time.Now())
		}
	case libprt.EventHeartbeatRequest:
		c.mu.Lock()
		hb := c.hb
		c.mu.Unlock()
		if hb != nil {
			hb.OnIncomingRequest(ev.RequestID)
		}
	}
}

var _ Connection = (*conn)(nil)
var _ libhb.Sender = (*conn)(nil)
