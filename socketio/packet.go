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
	"strconv"
	"strings"
)

// encodePacket renders the Socket.IO wire string format:
// <type>[<attachments>-][<namespace>,][<id>]<json>
func encodePacket(p Packet) string {
	var b strings.Builder
	b.WriteByte(byte(p.Type))

	if p.Type == BinaryEvent || p.Type == BinaryAck {
		b.WriteString(strconv.Itoa(p.Attachments))
		b.WriteByte('-')
	}

	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}

	if p.ID != nil {
		b.WriteString(strconv.FormatUint(uint64(*p.ID), 10))
	}

	b.Write(p.Data)
	return b.String()
}

// decodePacket parses the Socket.IO wire string format back into a Packet.
func decodePacket(raw string) (Packet, error) {
	if len(raw) == 0 {
		return Packet{}, errPacketFormat("empty packet")
	}

	p := Packet{Type: PacketType(raw[0]), Namespace: "/"}
	rest := raw[1:]

	if p.Type == BinaryEvent || p.Type == BinaryAck {
		idx := strings.IndexByte(rest, '-')
		if idx < 0 {
			return Packet{}, errPacketFormat("missing attachment count separator")
		}
		n, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return Packet{}, errPacketFormat("invalid attachment count")
		}
		p.Attachments = n
		rest = rest[idx+1:]
	}

	if strings.HasPrefix(rest, "/") {
		idx := strings.IndexByte(rest, ',')
		if idx < 0 {
			p.Namespace = rest
			rest = ""
		} else {
			p.Namespace = rest[:idx]
			rest = rest[idx+1:]
		}
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		n, err := strconv.ParseUint(rest[:i], 10, 32)
		if err != nil {
			return Packet{}, errPacketFormat("invalid packet id")
		}
		id := uint32(n)
		p.ID = &id
		rest = rest[i:]
	}

	if rest != "" {
		p.Data = []byte(rest)
	}
	return p, nil
}
