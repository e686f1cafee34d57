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

// Package socketio implements a Socket.IO v5 client layered on an
// engineio.Client: namespaces, rooms, event ACKs, and binary attachments.
package socketio

import "context"

// PacketType is the Socket.IO packet type digit, carried as the first
// character of an Engine.IO MESSAGE payload.
type PacketType byte

const (
	Connect PacketType = iota + '0'
	Disconnect
	Event
	Ack
	ConnectError
	BinaryEvent
	BinaryAck
)

// Packet is a parsed Socket.IO packet.
type Packet struct {
	Type        PacketType
	Namespace   string // default "/"
	ID          *uint32
	Data        []byte // raw JSON array, or nil
	Attachments int
}

// EventHandler receives a routed event's name and JSON-decoded arguments.
type EventHandler func(event string, args []byte)

// AckFunc is called by the peer's ACK response to a client-emitted event.
type AckFunc func(args []byte)

// Namespace is one joined Socket.IO namespace.
type Namespace interface {
	Name() string

	// On registers an event handler, replacing any previous handler under
	// the same event name.
	On(event string, h EventHandler)

	// Emit sends an EVENT packet with no ACK expectation.
	Emit(ctx context.Context, event string, args ...any) error

	// EmitWithAck sends an EVENT packet and invokes ack once the matching
	// ACK packet is received, or never if it times out (dropped silently
	// per spec.md §4.K).
	EmitWithAck(ctx context.Context, event string, ack AckFunc, args ...any) error

	Join(room string)
	Leave(room string)
	LeaveAll()
	Rooms() []string
}

// Client is the Socket.IO client surface.
type Client interface {
	Connect(ctx context.Context) error
	// Of returns (creating if necessary) the Namespace ns, sending its
	// CONNECT handshake once the Engine.IO transport is open.
	Of(ns string) Namespace
	Close() error
}
