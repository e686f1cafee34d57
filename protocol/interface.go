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

// Package protocol implements the binary request/response wire protocol: a
// 20-byte header plus 4-byte big-endian length prefix, the frame codec that
// reassembles frames from a buffered byte stream, and an adapter that turns
// frames into ProtocolEvents and application messages into frames, tracking
// in-flight requests by id.
package protocol

import "context"

// FrameTag is the magic value every frame header carries.
const FrameTag uint16 = 0x7A5A

// HeartbeatFunctionID is the reserved function_id marking a heartbeat frame.
const HeartbeatFunctionID uint32 = 0xFFFF

// Flag bits within Header.TypeFlags.
const (
	FlagHeartbeat  uint8 = 1 << 0
	FlagCompressed uint8 = 1 << 5
)

// HeaderSize is the fixed size, in bytes, of a frame header (everything
// after the 4-byte length prefix).
const HeaderSize = 20

// Header is the fixed 20-byte frame header, fields in wire order.
type Header struct {
	Tag          uint16
	Ver          uint16
	TypeFlags    uint8
	ResponseFlag uint8
	RequestID    uint32
	FunctionID   uint32
	Code         uint32
	Reserved     uint16
}

// IsHeartbeat reports whether the header marks a heartbeat frame.
func (h Header) IsHeartbeat() bool {
	return h.FunctionID == HeartbeatFunctionID
}

// IsCompressed reports whether the body is DEFLATE-compressed.
func (h Header) IsCompressed() bool {
	return h.TypeFlags&FlagCompressed != 0
}

// IsResponse reports whether this frame carries a response (vs. a request
// or notification).
func (h Header) IsResponse() bool {
	return h.ResponseFlag == 1
}

// Frame is a fully decoded header plus its body bytes.
type Frame struct {
	Header Header
	Body   []byte
}

// EventKind discriminates the variants of ProtocolEvent.
type EventKind uint8

const (
	EventResponse EventKind = iota
	EventNotification
	EventHeartbeatRequest
	EventHeartbeatAck
)

// ProtocolEvent is the demultiplexed result of handling one incoming frame.
type ProtocolEvent struct {
	Kind       EventKind
	RequestID  uint32
	Code       uint32
	FunctionID uint32
	Body       []byte
}

// Context carries per-flow addressing the adapter needs to build a frame:
// the target function id (0 for a bare notification/response) and an
// optional request id override (0 requests allocation of a new id).
type Context struct {
	FunctionID uint32
	RequestID  uint32
}

// Adapter turns application messages into wire frames and wire frames back
// into ProtocolEvents, allocating and tracking request ids along the way.
type Adapter interface {
	// Encode serialises message with the configured payload codec, builds a
	// request frame, and returns it with its request id: fctx.RequestID, or a
	// freshly allocated id when that is 0.
	Encode(ctx context.Context, message any, fctx Context) ([]byte, uint32, error)

	// DecodeAs consumes one full framed byte slice and deserialises its
	// body into out (a pointer).
	DecodeAs(framed []byte, out any) error

	// CreateHeartbeat returns a header-only heartbeat request frame.
	CreateHeartbeat() []byte

	// CreateHeartbeatAck mirrors a received heartbeat header back as an ack.
	CreateHeartbeatAck(req Header) []byte

	// HandleIncoming demultiplexes one full framed byte slice into zero or
	// more ProtocolEvents (always exactly one for a well-formed frame).
	HandleIncoming(framed []byte) ([]ProtocolEvent, error)
}
