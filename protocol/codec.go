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
	"bytes"
	"compress/flate"
	"encoding/json"
	"io"

	"github.com/fxamacker/cbor/v2"

	liberr "github.com/fengmingdev/nexuskit/errors"
)

// PayloadCodec serialises/deserialises message bodies. The default is
// encoding/json (stdlib — see DESIGN.md: the wire format only demands a
// self-describing body codec behind the fixed binary header, and no example
// in the pack specializes in a non-JSON payload format for this shape of
// protocol).
type PayloadCodec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (jsonCodec) Unmarshal(d []byte, v any) error { return json.Unmarshal(d, v) }

// DefaultPayloadCodec is the JSON codec used when Config.Codec is nil.
var DefaultPayloadCodec PayloadCodec = jsonCodec{}

// cborCodec marshals message bodies as CBOR instead of JSON: a denser binary
// encoding for payloads where wire size matters more than human-readability,
// using the same library the teacher's own config types use for their CBOR
// support (certificates, duration).
type cborCodec struct{}

func (cborCodec) Marshal(v any) ([]byte, error)   { return cbor.Marshal(v) }
func (cborCodec) Unmarshal(d []byte, v any) error { return cbor.Unmarshal(d, v) }

// CBORCodec is an alternate PayloadCodec; set Configuration/Adapter to use it
// in place of DefaultPayloadCodec when a denser body encoding is preferred
// over JSON's readability.
var CBORCodec PayloadCodec = cborCodec{}

// compressBody DEFLATE-compresses body, used when compression is enabled
// and len(body) is at or above the configured threshold.
func compressBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, liberr.CompressionFailed.Error(err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, liberr.CompressionFailed.Error(err)
	}
	if err := w.Close(); err != nil {
		return nil, liberr.CompressionFailed.Error(err)
	}
	return buf.Bytes(), nil
}

// decompressBody reverses compressBody.
func decompressBody(body []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(body))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, liberr.DecompressionFailed.Error(err)
	}
	return out, nil
}
