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

package transport_test

import (
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libtrn "github.com/fengmingdev/nexuskit/transport"
)

func echoListener() (host string, port uint16, stop func()) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	done := make(chan struct{})
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						if _, werr := c.Write(buf[:n]); werr != nil {
							return
						}
					}
					if err != nil {
						return
					}
				}
			}(c)
		}
	}()
	go func() {
		<-done
		_ = ln.Close()
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return "127.0.0.1", uint16(addr.Port), func() { close(done) }
}

var _ = Describe("TCP transport", func() {
	It("connects, round-trips bytes through an echo peer, and closes cleanly", func() {
		host, port, stop := echoListener()
		defer stop()

		tr := libtrn.NewTCP(libtrn.TCPConfig{Host: host, Port: port, Timeout: time.Second})
		Expect(tr.Connect(context.Background())).To(Succeed())
		defer tr.Close()

		Expect(tr.Send(context.Background(), []byte("Hello Server!"))).To(Succeed())

		got, err := tr.Recv(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]byte("Hello Server!")))

		Expect(tr.LocalAddr()).NotTo(BeNil())
		Expect(tr.RemoteAddr()).NotTo(BeNil())

		Expect(tr.Close()).To(Succeed())
	})

	It("fails to connect to a port nothing is listening on", func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		addr := ln.Addr().(*net.TCPAddr)
		Expect(ln.Close()).To(Succeed()) // free the port, nothing now listens on it

		tr := libtrn.NewTCP(libtrn.TCPConfig{Host: "127.0.0.1", Port: uint16(addr.Port), Timeout: 200 * time.Millisecond})
		err = tr.Connect(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("rejects an endpoint with no host or port configured", func() {
		tr := libtrn.NewTCP(libtrn.TCPConfig{})
		err := tr.Connect(context.Background())
		Expect(err).To(HaveOccurred())
	})

	It("Send/Recv before Connect report not-connected", func() {
		tr := libtrn.NewTCP(libtrn.TCPConfig{Host: "127.0.0.1", Port: 1})
		Expect(tr.Send(context.Background(), []byte("x"))).To(HaveOccurred())
		_, err := tr.Recv(context.Background())
		Expect(err).To(HaveOccurred())
	})
})
