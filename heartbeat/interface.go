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

// Package heartbeat implements the connection's cooperative heartbeat timer:
// fixed and adaptive send intervals, RTT accounting, and timeout-driven
// disconnect signalling.
package heartbeat

import "time"

// Mode selects who originates heartbeat frames on a connection.
type Mode uint8

const (
	// ModeClient sends heartbeats and expects Acks; never replies to
	// incoming heartbeat requests.
	ModeClient Mode = iota
	// ModeServer never originates heartbeats; only Acks incoming requests.
	ModeServer
	// ModeBoth does both.
	ModeBoth
)

// Sender is the narrow surface the manager needs from the protocol adapter
// and the transport/send path, kept separate so heartbeat has no import
// dependency on protocol or transport.
type Sender interface {
	// SendHeartbeat writes a heartbeat request frame to the wire and
	// returns the request id it was sent under, for later Ack matching.
	SendHeartbeat() (requestID uint32, err error)
	// SendHeartbeatAck replies to an incoming heartbeat request identified
	// by requestID.
	SendHeartbeatAck(requestID uint32) error
}

// Stats is a point-in-time snapshot of heartbeat counters.
type Stats struct {
	Sent       uint64
	Received   uint64
	Failed     uint64
	AverageRTT time.Duration
	LastRTT    time.Duration
}

// Config configures a Manager.
type Config struct {
	Mode     Mode
	Interval time.Duration // fixed-mode send interval / adaptive-mode base
	Timeout  time.Duration // max wait for an Ack before counting a failure

	Adaptive bool
	Window   time.Duration // adaptive success-rate sliding window, default 5m
	MaxDelay time.Duration // adaptive interval ceiling

	// OnTimeout is invoked from the manager's own goroutine when a sent
	// heartbeat goes unacknowledged past Timeout; the caller disconnects
	// with DisconnectReason::HeartbeatTimeout.
	OnTimeout func()
}

// Manager drives the heartbeat timer for one connection. Started on entering
// Connected, cancelled on leaving it.
type Manager interface {
	// Start begins the cooperative timer loop. Safe to call once per
	// Connected lifetime.
	Start()
	// Stop cancels the loop. Idempotent.
	Stop()

	// OnAck records a received Ack for requestID, computing RTT against the
	// matching sent heartbeat.
	OnAck(requestID uint32, now time.Time)
	// OnIncomingRequest handles a peer-originated heartbeat request; in
	// ModeServer/ModeBoth this replies with an Ack.
	OnIncomingRequest(requestID uint32)

	Stats() Stats
}
