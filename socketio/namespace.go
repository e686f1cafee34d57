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
)

// namespace is the default Namespace: joined rooms and event handlers are
// client-side bookkeeping only (the server is the actual room authority),
// matching spec.md §4.K's "client-side representation only" note.
type namespace struct {
	name   string
	client *client

	mu       sync.Mutex
	handlers map[string]EventHandler
	acks     map[uint32]AckFunc
	rooms    map[string]struct{}
}

func (n *namespace) Name() string { return n.name }

func (n *namespace) On(event string, h EventHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[event] = h
}

// dispatchEvent decodes a JSON array whose first element is the event name
// and remaining elements are arguments, then routes it to the matching
// handler.
func (n *namespace) dispatchEvent(data []byte) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil || len(arr) == 0 {
		return
	}

	var event string
	if err := json.Unmarshal(arr[0], &event); err != nil {
		return
	}

	args, _ := json.Marshal(arr[1:])

	n.mu.Lock()
	h := n.handlers[event]
	n.mu.Unlock()
	if h != nil {
		h(event, args)
	}
}

func (n *namespace) dispatchAck(id uint32, data []byte) {
	n.mu.Lock()
	fn, ok := n.acks[id]
	if ok {
		delete(n.acks, id)
	}
	n.mu.Unlock()

	if ok {
		fn(data)
	}
}

func (n *namespace) encodeArgs(event string, args []any) ([]byte, error) {
	all := make([]any, 0, len(args)+1)
	all = append(all, event)
	all = append(all, args...)
	return json.Marshal(all)
}

func (n *namespace) Emit(ctx context.Context, event string, args ...any) error {
	return n.EmitWithAck(ctx, event, nil, args...)
}

func (n *namespace) EmitWithAck(ctx context.Context, event string, ack AckFunc, args ...any) error {
	data, err := n.encodeArgs(event, args)
	if err != nil {
		return err
	}

	pkt := Packet{Type: Event, Namespace: n.name, Data: data}

	if ack != nil {
		id := n.client.nextAckID()
		pkt.ID = &id
		n.mu.Lock()
		n.acks[id] = ack
		n.mu.Unlock()
	}

	return n.client.eio.Send(ctx, []byte(encodePacket(pkt)))
}

// Join, Leave, LeaveAll translate to explicit "join"/"leave" events per
// spec.md §4.K; the server is the actual room authority, this only tracks
// the client-side membership set.
func (n *namespace) Join(room string) {
	n.mu.Lock()
	if n.rooms == nil {
		n.rooms = make(map[string]struct{})
	}
	n.rooms[room] = struct{}{}
	n.mu.Unlock()

	_ = n.Emit(context.Background(), "join", room)
}

func (n *namespace) Leave(room string) {
	n.mu.Lock()
	delete(n.rooms, room)
	n.mu.Unlock()

	_ = n.Emit(context.Background(), "leave", room)
}

func (n *namespace) LeaveAll() {
	n.mu.Lock()
	n.rooms = make(map[string]struct{})
	n.mu.Unlock()

	_ = n.Emit(context.Background(), "leave", nil)
}

func (n *namespace) Rooms() []string {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]string, 0, len(n.rooms))
	for r := range n.rooms {
		out = append(out, r)
	}
	return out
}

var _ Namespace = (*namespace)(nil)
