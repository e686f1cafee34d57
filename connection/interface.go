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

// Package connection owns the connection lifecycle state machine: transport
// stack composition, the reader loop, heartbeat and reconnection wiring, and
// the public send/receive/event-handler surface.
package connection

import (
	"context"
	"time"

	libcrt "github.com/fengmingdev/nexuskit/certificates"
	libdur "github.com/fengmingdev/nexuskit/duration"
	libhb "github.com/fengmingdev/nexuskit/heartbeat"
	liblog "github.com/fengmingdev/nexuskit/logger"
	libmdw "github.com/fengmingdev/nexuskit/middleware"
	libprt "github.com/fengmingdev/nexuskit/protocol"
	librec "github.com/fengmingdev/nexuskit/reconnect"
)

// State enumerates the connection lifecycle per spec.md's transition table.
type State uint8

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Disconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// DisconnectReason explains why a connection left the Connected state.
type DisconnectReason uint8

const (
	ClientInitiated DisconnectReason = iota
	ServerInitiated
	ReasonError
	HeartbeatTimeout
	NetworkLost
)

// Endpoint is an immutable dial target: either a raw TCP host/port or a
// WebSocket URL (consumed by the engineio layer, not by this package
// directly).
type Endpoint struct {
	Network string // "tcp" or "ws"
	Host    string
	Port    uint16
	URL     string
}

// ProxyConfig optionally routes the transport through a SOCKS5 tunnel.
type ProxyConfig struct {
	Enabled  bool
	Host     string
	Port     uint16
	Username string
	Password string
}

// TLSConfig optionally wraps the transport in TLS.
type TLSConfig struct {
	Enabled         bool
	ServerName      string
	ALPN            []string
	Validation      libcrt.ValidationPolicy
	Pins            [][32]byte
	AllowSelfSigned bool
	Base            libcrt.TLSConfig
}

// HeartbeatConfig configures the connection's heartbeat.Manager.
type HeartbeatConfig struct {
	Enabled  bool
	Mode     libhb.Mode
	Interval time.Duration
	Timeout  time.Duration
	Adaptive bool
	Window   time.Duration
	MaxDelay time.Duration
}

// Hooks are the lifecycle callbacks fanned out, in this fixed order, on
// every relevant transition: onConnecting, onConnected, onDisconnected,
// onError, onStateChange.
type Hooks struct {
	OnConnecting   func()
	OnConnected    func()
	OnDisconnected func(reason DisconnectReason)
	OnError        func(err error)
	OnStateChange  func(old, new State)
}

// EventKind distinguishes the categories a registered handler can subscribe
// to via On.
type EventKind uint8

const (
	EventMessage EventKind = iota
	EventControl
	EventError
	EventStateChange
)

// Handler receives fanned-out events. Exactly one of the fields relevant to
// kind is populated by the dispatcher.
type Handler func(kind EventKind, payload any)

// Configuration is the connection's full construction contract; an external
// façade/builder (out of scope here) is expected to assemble one of these
// from user-facing configuration.
type Configuration struct {
	ID       string
	Endpoint Endpoint

	Adapter  libprt.Adapter
	Strategy librec.Strategy
	Pipeline libmdw.Pipeline

	// ConnectTimeout and IOTimeout use duration.Duration (rather than plain
	// time.Duration) so a Configuration sourced from JSON/YAML can spell
	// them with days, e.g. "1d12h".
	ConnectTimeout libdur.Duration
	IOTimeout      libdur.Duration

	Heartbeat HeartbeatConfig
	TLS       TLSConfig
	Proxy     ProxyConfig

	Hooks Hooks
	Meta  map[string]any

	Logger liblog.Logger
}

// Connection is the public surface of the state machine, matching spec.md
// §4.I's operation table.
type Connection interface {
	Connect(ctx context.Context) error
	Send(ctx context.Context, b []byte) error
	SendMessage(ctx context.Context, msg any, functionID uint32, timeout time.Duration) ([]byte, uint32, error)
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	On(kind EventKind, h Handler)
	Disconnect(reason DisconnectReason) error

	State() State
	HeartbeatStats() libhb.Stats
}
