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

package engineio

import (
	"net/url"
	"strings"
)

// encodePacket renders a packet as its single-digit type plus raw data, no
// length prefix (WebSocket framing supplies message boundaries).
func encodePacket(p Packet) []byte {
	out := make([]byte, 0, 1+len(p.Data))
	out = append(out, byte(p.Type))
	out = append(out, p.Data...)
	return out
}

// decodePacket parses a raw WebSocket text/binary frame payload into a
// Packet.
func decodePacket(raw []byte) (Packet, error) {
	if len(raw) == 0 {
		return Packet{}, errPacketFormat("empty packet")
	}
	return Packet{Type: PacketType(raw[0]), Data: raw[1:]}, nil
}

// buildURL maps http->ws and https->wss, appends the default path if cfg.Path
// is empty, and sets the EIO=4&transport=websocket query per §4.J.
func buildURL(cfg Config) (string, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	path := cfg.Path
	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = path

	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
