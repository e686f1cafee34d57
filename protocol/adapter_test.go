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

package protocol_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libprt "github.com/fengmingdev/nexuskit/protocol"
)

var _ = Describe("binaryAdapter", func() {
	var adapter libprt.Adapter

	BeforeEach(func() {
		adapter = libprt.NewAdapter(libprt.Config{})
	})

	It("allocates unique, never-zero request ids", func() {
		seen := map[uint32]bool{}
		for i := 0; i < 1000; i++ {
			_, id, err := adapter.Encode(context.Background(), map[string]int{"i": i}, libprt.Context{FunctionID: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeZero())
			Expect(seen[id]).To(BeFalse())
			seen[id] = true
		}
	})

	It("allocates unique ids under concurrent Encode calls", func() {
		const n = 200
		ids := make([]uint32, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, id, err := adapter.Encode(context.Background(), i, libprt.Context{FunctionID: 1})
				Expect(err).NotTo(HaveOccurred())
				ids[i] = id
			}(i)
		}
		wg.Wait()

		seen := map[uint32]bool{}
		for _, id := range ids {
			Expect(id).NotTo(BeZero())
			Expect(seen[id]).To(BeFalse())
			seen[id] = true
		}
	})

	It("round-trips a request body through Encode/DecodeAs-equivalent HandleIncoming", func() {
		framed, id, err := adapter.Encode(context.Background(), "Hello Server!", libprt.Context{FunctionID: 1})
		Expect(err).NotTo(HaveOccurred())

		// Simulate the peer echoing a response with the same request id.
		respHeader := libprt.Header{ResponseFlag: 1, RequestID: id, Code: 200}
		respFrame := libprt.EncodeFrame(respHeader, []byte(`"received: Hello Server!"`))

		events, err := adapter.HandleIncoming(respFrame)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(libprt.EventResponse))
		Expect(events[0].RequestID).To(Equal(id))
		Expect(events[0].Code).To(Equal(uint32(200)))

		_ = framed // exercised for its side effect (id allocation) above
	})

	It("builds a heartbeat frame with function_id 0xFFFF", func() {
		raw := adapter.CreateHeartbeat()

		f := libprt.NewFramer(0)
		frames, err := f.Feed(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(frames).To(HaveLen(1))
		Expect(frames[0].Header.FunctionID).To(Equal(libprt.HeartbeatFunctionID))
		Expect(frames[0].Header.IsHeartbeat()).To(BeTrue())
		Expect(frames[0].Header.IsResponse()).To(BeFalse())
	})

	It("classifies a heartbeat ack distinctly from a heartbeat request", func() {
		reqRaw := adapter.CreateHeartbeat()
		f := libprt.NewFramer(0)
		frames, _ := f.Feed(reqRaw)
		reqHeader := frames[0].Header

		ackRaw := adapter.CreateHeartbeatAck(reqHeader)
		events, err := adapter.HandleIncoming(ackRaw)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(libprt.EventHeartbeatAck))
	})

	It("round-trips a compressed body above the compression threshold", func() {
		compAdapter := libprt.NewAdapter(libprt.Config{CompressionEnabled: true, CompressionThreshold: 8})

		big := make([]byte, 4096)
		for i := range big {
			big[i] = byte(i % 251)
		}

		framed, _, err := compAdapter.Encode(context.Background(), big, libprt.Context{FunctionID: 1})
		Expect(err).NotTo(HaveOccurred())

		var out []byte
		Expect(compAdapter.DecodeAs(framed, &out)).To(Succeed())
		Expect(out).To(Equal(big))
	})
})
