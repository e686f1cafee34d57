/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2022 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

// Package size provides a byte-count type with human-readable formatting and
// parsing, used across the connection core for buffer, frame and cache size
// limits (framer max_frame, cache max_size, rate limiter burst sizes).
package size

import (
	"fmt"
	"strconv"
	"strings"
)

// Size counts a number of bytes.
type Size uint64

const (
	SizeNul  Size = 0
	SizeUnit Size = 1
	SizeKilo Size = SizeUnit << 10
	SizeMega Size = SizeKilo << 10
	SizeGiga Size = SizeMega << 10
	SizeTera Size = SizeGiga << 10
	SizePeta Size = SizeTera << 10
	SizeExa  Size = SizePeta << 10
)

// Format selects the number of decimals String/Format render.
type Format uint8

const (
	FormatRound0 Format = iota
	FormatRound1
	FormatRound2
	FormatRound3
)

// ParseInt64 returns the Size for the absolute value of i.
func ParseInt64(i int64) Size {
	if i < 0 {
		i = -i
	}
	return Size(i)
}

// SizeFromInt64 is an alias of ParseInt64.
func SizeFromInt64(i int64) Size {
	return ParseInt64(i)
}

// ParseUint64 returns the Size for u.
func ParseUint64(u uint64) Size {
	return Size(u)
}

var units = []struct {
	suffix string
	size   Size
}{
	{"EB", SizeExa},
	{"PB", SizePeta},
	{"TB", SizeTera},
	{"GB", SizeGiga},
	{"MB", SizeMega},
	{"KB", SizeKilo},
}

// Parse interprets a human string like "5MB", "1.5 GiB", "100" (bytes) or
// "1K" into a Size.
func Parse(s string) (Size, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("size: empty input")
	}

	upper := strings.ToUpper(s)
	upper = strings.TrimSuffix(upper, "IB")

	mult := SizeUnit
	numPart := upper

	switch {
	case strings.HasSuffix(upper, "EB"), strings.HasSuffix(upper, "E"):
		mult = SizeExa
		numPart = trimAnySuffix(upper, "EB", "E")
	case strings.HasSuffix(upper, "PB"), strings.HasSuffix(upper, "P"):
		mult = SizePeta
		numPart = trimAnySuffix(upper, "PB", "P")
	case strings.HasSuffix(upper, "TB"), strings.HasSuffix(upper, "T"):
		mult = SizeTera
		numPart = trimAnySuffix(upper, "TB", "T")
	case strings.HasSuffix(upper, "GB"), strings.HasSuffix(upper, "G"):
		mult = SizeGiga
		numPart = trimAnySuffix(upper, "GB", "G")
	case strings.HasSuffix(upper, "MB"), strings.HasSuffix(upper, "M"):
		mult = SizeMega
		numPart = trimAnySuffix(upper, "MB", "M")
	case strings.HasSuffix(upper, "KB"), strings.HasSuffix(upper, "K"):
		mult = SizeKilo
		numPart = trimAnySuffix(upper, "KB", "K")
	case strings.HasSuffix(upper, "B"):
		mult = SizeUnit
		numPart = strings.TrimSuffix(upper, "B")
	}

	numPart = strings.TrimSpace(numPart)
	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("size: invalid value %q: %w", s, err)
	}
	if f < 0 {
		f = -f
	}

	return Size(f * float64(mult)), nil
}

func trimAnySuffix(s string, suffixes ...string) string {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

// Format renders the size with the given decimal precision.
func (s Size) Format(f Format) string {
	decimals := int(f)

	var (
		val    float64
		suffix string
	)

	switch {
	case s >= SizeExa:
		val, suffix = float64(s)/float64(SizeExa), "EB"
	case s >= SizePeta:
		val, suffix = float64(s)/float64(SizePeta), "PB"
	case s >= SizeTera:
		val, suffix = float64(s)/float64(SizeTera), "TB"
	case s >= SizeGiga:
		val, suffix = float64(s)/float64(SizeGiga), "GB"
	case s >= SizeMega:
		val, suffix = float64(s)/float64(SizeMega), "MB"
	case s >= SizeKilo:
		val, suffix = float64(s)/float64(SizeKilo), "KB"
	default:
		return fmt.Sprintf("%dB", uint64(s))
	}

	return strconv.FormatFloat(val, 'f', decimals, 64) + suffix
}

// String renders the size with one decimal of precision, the default used
// by log lines and error messages.
func (s Size) String() string {
	return s.Format(FormatRound1)
}

// MarshalJSON renders the Size as its human-readable string form.
func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts either a quoted human string or a bare number of
// bytes.
func (s *Size) UnmarshalJSON(data []byte) error {
	str := strings.TrimSpace(string(data))

	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		unquoted, err := strconv.Unquote(str)
		if err != nil {
			return err
		}
		v, err := Parse(unquoted)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}

	u, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return err
	}
	*s = Size(u)
	return nil
}

// Uint64 returns the Size as a uint64 byte count.
func (s Size) Uint64() uint64 {
	return uint64(s)
}

// Int64 returns the Size as an int64 byte count.
func (s Size) Int64() int64 {
	return int64(s)
}
