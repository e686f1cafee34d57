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

// Package engineio implements a minimal Engine.IO v4 client over WebSocket,
// grounded on github.com/gobwas/ws for the wire transport.
package engineio

import (
	"context"
)

// PacketType is the single ASCII-digit Engine.IO packet discriminator.
type PacketType byte

const (
	PacketOpen PacketType = iota + '0'
	PacketClose
	PacketPing
	PacketPong
	PacketMessage
	PacketUpgrade
	PacketNoop
)

// Packet is a parsed Engine.IO packet: one type byte plus optional payload.
type Packet struct {
	Type PacketType
	Data []byte
}

// Handshake is the Open packet's JSON payload.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

// Config configures a Client.
type Config struct {
	URL  string // base http(s):// or ws(s):// URL of the Socket.IO/Engine.IO server
	Path string // default "/socket.io/"
}

// Client is the Engine.IO transport surface consumed by the Socket.IO layer.
type Client interface {
	Connect(ctx context.Context) (Handshake, error)
	Send(ctx context.Context, data []byte) error

	// OnMessage registers the handler invoked for every Message (type 4)
	// packet delivered upward.
	OnMessage(func(data []byte))
	// OnClose registers the handler invoked once the connection tears down,
	// whether client- or server-initiated, or due to a missed pong.
	OnClose(func(err error))

	Close() error
}
