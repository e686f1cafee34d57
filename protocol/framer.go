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

package protocol

import (
	"encoding/binary"

	libsiz "github.com/fengmingdev/nexuskit/size"
)

// DefaultMaxFrame bounds a single frame's total size (length prefix value),
// NewFramer's default when its maxFrame argument is zero.
const DefaultMaxFrame = libsiz.SizeUnit * 1024 * 1024 // 1 MiB

// Framer reassembles frames out of a byte stream: bytes accumulate in an
// internal buffer until a full frame is available, then it is sliced off
// and the remainder kept for the next call.
type Framer struct {
	MaxFrame libsiz.Size

	buf []byte
}

// NewFramer returns a Framer bounded by maxFrame (DefaultMaxFrame if zero).
func NewFramer(maxFrame libsiz.Size) *Framer {
	if maxFrame == 0 {
		maxFrame = DefaultMaxFrame
	}
	return &Framer{MaxFrame: maxFrame}
}

// Feed appends newly-received bytes to the internal buffer and returns every
// complete frame now available, in arrival order. Left-over partial bytes
// remain buffered for the next Feed call.
func (f *Framer) Feed(chunk []byte) ([]Frame, error) {
	f.buf = append(f.buf, chunk...)

	var out []Frame
	for {
		fr, consumed, err := f.tryExtract()
		if err != nil {
			return out, err
		}
		if !consumed {
			break
		}
		out = append(out, fr)
	}
	return out, nil
}

func (f *Framer) tryExtract() (Frame, bool, error) {
	if len(f.buf) < 4 {
		return Frame{}, false, nil
	}

	l := binary.BigEndian.Uint32(f.buf[0:4])
	if l < HeaderSize {
		return Frame{}, false, errInvalidFrame("length shorter than header")
	}
	if uint64(l) > uint64(f.MaxFrame) {
		return Frame{}, false, errInvalidFrame("frame exceeds max size")
	}

	total := 4 + int(l)
	if len(f.buf) < total {
		return Frame{}, false, nil
	}

	body := f.buf[0:total]
	hdr := DecodeHeader(body[4:24])
	if hdr.Tag != FrameTag {
		return Frame{}, false, errInvalidFrame("tag mismatch")
	}
	fr := Frame{Header: hdr, Body: append([]byte(nil), body[24:total]...)}

	f.buf = append([]byte(nil), f.buf[total:]...)
	return fr, true, nil
}

// EncodeHeader writes h's fields, in declared order, big-endian.
func EncodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(b[0:2], h.Tag)
	binary.BigEndian.PutUint16(b[2:4], h.Ver)
	b[4] = h.TypeFlags
	b[5] = h.ResponseFlag
	binary.BigEndian.PutUint32(b[6:10], h.RequestID)
	binary.BigEndian.PutUint32(b[10:14], h.FunctionID)
	binary.BigEndian.PutUint32(b[14:18], h.Code)
	binary.BigEndian.PutUint16(b[18:20], h.Reserved)
	return b
}

// DecodeHeader parses exactly HeaderSize bytes into a Header.
func DecodeHeader(b []byte) Header {
	return Header{
		Tag:          binary.BigEndian.Uint16(b[0:2]),
		Ver:          binary.BigEndian.Uint16(b[2:4]),
		TypeFlags:    b[4],
		ResponseFlag: b[5],
		RequestID:    binary.BigEndian.Uint32(b[6:10]),
		FunctionID:   binary.BigEndian.Uint32(b[10:14]),
		Code:         binary.BigEndian.Uint32(b[14:18]),
		Reserved:     binary.BigEndian.Uint16(b[18:20]),
	}
}

// EncodeFrame renders a full frame: 4-byte BE length, then header, then body.
func EncodeFrame(h Header, body []byte) []byte {
	h.Tag = FrameTag
	hb := EncodeHeader(h)

	l := uint32(HeaderSize + len(body))
	out := make([]byte, 4, 4+len(hb)+len(body))
	binary.BigEndian.PutUint32(out, l)
	out = append(out, hb...)
	out = append(out, body...)
	return out
}
