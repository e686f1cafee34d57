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
	"context"
	"sync/atomic"

	libsiz "github.com/fengmingdev/nexuskit/size"
)

// Config configures a binary Adapter.
type Config struct {
	Ver                  uint16
	Codec                PayloadCodec
	CompressionEnabled   bool
	CompressionThreshold libsiz.Size
	MaxFrame             libsiz.Size
}

type binaryAdapter struct {
	cfg     Config
	nextID  uint32 // accessed via atomic ops; request-id allocator state
}

// NewAdapter returns the default binary frame Adapter.
func NewAdapter(cfg Config) Adapter {
	if cfg.Codec == nil {
		cfg.Codec = DefaultPayloadCodec
	}
	if cfg.CompressionThreshold == 0 {
		cfg.CompressionThreshold = 1024
	}
	return &binaryAdapter{cfg: cfg}
}

// nextRequestID allocates a monotonically increasing, never-zero id,
// wrapping to 1 on overflow.
func (a *binaryAdapter) nextRequestID() uint32 {
	for {
		id := atomic.AddUint32(&a.nextID, 1)
		if id != 0 {
			return id
		}
		// wrapped to exactly 0: retry, the next AddUint32 yields 1.
	}
}

func (a *binaryAdapter) Encode(ctx context.Context, message any, fctx Context) ([]byte, uint32, error) {
	body, err := a.cfg.Codec.Marshal(message)
	if err != nil {
		return nil, 0, serializationFailed(err)
	}

	id := fctx.RequestID
	if id == 0 {
		id = a.nextRequestID()
	}

	h := Header{
		Ver:          a.cfg.Ver,
		ResponseFlag: 0,
		RequestID:    id,
		FunctionID:   fctx.FunctionID,
	}

	body, h.TypeFlags, err = a.maybeCompress(body)
	if err != nil {
		return nil, 0, err
	}

	return EncodeFrame(h, body), id, nil
}

func (a *binaryAdapter) maybeCompress(body []byte) ([]byte, uint8, error) {
	if !a.cfg.CompressionEnabled || libsiz.Size(len(body)) < a.cfg.CompressionThreshold {
		return body, 0, nil
	}
	c, err := compressBody(body)
	if err != nil {
		return nil, 0, err
	}
	return c, FlagCompressed, nil
}

func (a *binaryAdapter) DecodeAs(framed []byte, out any) error {
	fr, err := decodeOne(framed, a.cfg.MaxFrame)
	if err != nil {
		return err
	}

	body := fr.Body
	if fr.Header.IsCompressed() {
		body, err = decompressBody(body)
		if err != nil {
			return err
		}
	}

	if err := a.cfg.Codec.Unmarshal(body, out); err != nil {
		return serializationFailed(err)
	}
	return nil
}

func (a *binaryAdapter) CreateHeartbeat() []byte {
	h := Header{
		TypeFlags:  FlagHeartbeat,
		FunctionID: HeartbeatFunctionID,
	}
	return EncodeFrame(h, nil)
}

func (a *binaryAdapter) CreateHeartbeatAck(req Header) []byte {
	h := req
	h.ResponseFlag = 1
	return EncodeFrame(h, nil)
}

func (a *binaryAdapter) HandleIncoming(framed []byte) ([]ProtocolEvent, error) {
	fr, err := decodeOne(framed, a.cfg.MaxFrame)
	if err != nil {
		return nil, err
	}

	body := fr.Body
	if fr.Header.IsCompressed() {
		body, err = decompressBody(body)
		if err != nil {
			return nil, err
		}
	}

	h := fr.Header
	switch {
	case h.IsHeartbeat() && !h.IsResponse():
		return []ProtocolEvent{{Kind: EventHeartbeatRequest, RequestID: h.RequestID}}, nil
	case h.IsHeartbeat() && h.IsResponse():
		return []ProtocolEvent{{Kind: EventHeartbeatAck, RequestID: h.RequestID, Code: h.Code}}, nil
	case h.IsResponse():
		return []ProtocolEvent{{Kind: EventResponse, RequestID: h.RequestID, Code: h.Code, Body: body}}, nil
	default:
		return []ProtocolEvent{{Kind: EventNotification, FunctionID: h.FunctionID, Body: body}}, nil
	}
}

// decodeOne parses a single already-delimited framed byte slice (length
// prefix + header + body) without going through the streaming Framer.
func decodeOne(framed []byte, maxFrame libsiz.Size) (Frame, error) {
	f := NewFramer(maxFrame)
	frames, err := f.Feed(framed)
	if err != nil {
		return Frame{}, err
	}
	if len(frames) != 1 {
		return Frame{}, errInvalidFrame("expected exactly one frame")
	}
	return frames[0], nil
}
