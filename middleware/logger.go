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
	"context"

	liblog "github.com/fengmingdev/nexuskit/logger"
)

// LoggerMiddleware never transforms the flow; it only records the byte count
// and direction of every flow through the pipeline as a structured log
// entry, via the logger package (logrus under the hood).
type LoggerMiddleware struct {
	name string
	log  liblog.Logger
}

// NewLoggerMiddleware returns a non-transforming observability middleware
// writing through log.
func NewLoggerMiddleware(name string, log liblog.Logger) *LoggerMiddleware {
	return &LoggerMiddleware{name: name, log: log}
}

func (l *LoggerMiddleware) Name() string     { return l.name }
func (l *LoggerMiddleware) Priority() uint16 { return 0 }

func (l *LoggerMiddleware) fields(mctx Context, n int) liblog.Fields {
	f := liblog.NewFields()
	f["connection_id"] = mctx.ConnectionID
	f["endpoint"] = mctx.Endpoint
	f["bytes"] = n
	return f
}

func (l *LoggerMiddleware) HandleOutgoing(_ context.Context, b []byte, mctx Context) ([]byte, error) {
	l.log.Debug("outgoing flow", l.fields(mctx, len(b)))
	return b, nil
}

func (l *LoggerMiddleware) HandleIncoming(_ context.Context, b []byte, mctx Context) ([]byte, error) {
	l.log.Debug("incoming flow", l.fields(mctx, len(b)))
	return b, nil
}

var _ Middleware = (*LoggerMiddleware)(nil)
