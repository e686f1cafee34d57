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

package middleware

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"io"

	"github.com/ulikunitz/xz"
)

// CompressionProfile trades compression ratio for CPU cost.
type CompressionProfile uint8

const (
	// HighSpeed uses DEFLATE at its fastest setting.
	HighSpeed CompressionProfile = iota
	// Balanced uses gzip's default compression level.
	Balanced
	// HighRatio uses LZMA2 (xz), trading CPU for the smallest output.
	HighRatio
)

// CompressionMiddleware compresses outgoing bodies at or above Threshold bytes and
// transparently decompresses incoming ones carrying the matching marker byte.
// Framing already carries a FlagCompressed bit at the protocol layer; this
// middleware operates purely on raw bytes, so it prefixes a one-byte profile
// marker it can use to pick the matching decompressor.
type CompressionMiddleware struct {
	name      string
	Profile   CompressionProfile
	Threshold int
}

const (
	markerNone byte = iota
	markerDeflate
	markerGzip
	markerXZ
)

// NewCompressionMiddleware returns a CompressionMiddleware using profile,
// compressing outgoing bodies at or above threshold bytes.
func NewCompressionMiddleware(name string, profile CompressionProfile, threshold int) *CompressionMiddleware {
	return &CompressionMiddleware{name: name, Profile: profile, Threshold: threshold}
}

func (c *CompressionMiddleware) Name() string     { return c.name }
func (c *CompressionMiddleware) Priority() uint16 { return 20 }

func (c *CompressionMiddleware) HandleOutgoing(_ context.Context, b []byte, _ Context) ([]byte, error) {
	if len(b) < c.Threshold {
		return append([]byte{markerNone}, b...), nil
	}

	var buf bytes.Buffer
	marker := markerNone

	switch c.Profile {
	case HighSpeed:
		w, err := flate.NewWriter(&buf, flate.BestSpeed)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		marker = markerDeflate
	case Balanced:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		marker = markerGzip
	case HighRatio:
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(b); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		marker = markerXZ
	}

	out := make([]byte, 0, buf.Len()+1)
	out = append(out, marker)
	out = append(out, buf.Bytes()...)
	return out, nil
}

func (c *CompressionMiddleware) HandleIncoming(_ context.Context, b []byte, _ Context) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}

	marker, body := b[0], b[1:]
	var r io.Reader
	switch marker {
	case markerNone:
		return body, nil
	case markerDeflate:
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		r = fr
	case markerGzip:
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		r = gr
	case markerXZ:
		xr, err := xz.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		r = xr
	default:
		return body, nil
	}

	return io.ReadAll(r)
}

var _ Middleware = (*CompressionMiddleware)(nil)
