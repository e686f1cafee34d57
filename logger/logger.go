/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2025 Nicolas JUHEL
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

// Package logger provides the structured logging used across NexusKit's
// connection core: the built-in logger middleware, heartbeat/reconnection
// diagnostics, and state-change notifications all log through this
// package's Logger interface, which wraps a github.com/sirupsen/logrus
// instance with a small Entry builder and leveled fields.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the structured logging contract consumed by the connection
// core. A nil Logger is never passed down to components; New() always
// returns a usable instance.
type Logger interface {
	SetLevel(lvl Level)
	GetLevel() Level

	SetFields(field Fields)
	GetFields() Fields

	// Entry returns a fresh Entry pre-bound to this logger and to the
	// default field set, ready for FieldAdd/Log chaining.
	Entry(lvl Level, message string) *Entry

	Debug(message string, fields Fields)
	Info(message string, fields Fields)
	Warn(message string, fields Fields)
	Error(message string, err error, fields Fields)
}

type logger struct {
	mu  sync.RWMutex
	log *logrus.Logger
	lvl Level
	fld Fields
}

// New returns a Logger writing to a fresh logrus.Logger at the given
// level. Passing NilLevel silences all output.
func New(lvl Level) Logger {
	l := &logger{
		log: logrus.New(),
		fld: NewFields(),
	}
	l.SetLevel(lvl)
	updateFormatter(TextFormat)
	return l
}

func (o *logger) SetLevel(lvl Level) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lvl = lvl
	if lvl == NilLevel {
		o.log.SetLevel(logrus.PanicLevel + 1)
		o.log.SetOutput(io.Discard)
		return
	}
	o.log.SetOutput(os.Stderr)
	o.log.SetLevel(lvl.Logrus())
}

func (o *logger) GetLevel() Level {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lvl
}

func (o *logger) SetFields(field Fields) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fld = field
}

func (o *logger) GetFields() Fields {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.fld.clone()
}

func (o *logger) Entry(lvl Level, message string) *Entry {
	o.mu.RLock()
	base := o.fld
	lg := o.log
	o.mu.RUnlock()

	return &Entry{
		log:     func() *logrus.Logger { return lg },
		Level:   lvl,
		Message: message,
		Fields:  base.clone(),
	}
}

func (o *logger) Debug(message string, fields Fields) {
	o.Entry(DebugLevel, message).FieldMerge(fields).Log()
}

func (o *logger) Info(message string, fields Fields) {
	o.Entry(InfoLevel, message).FieldMerge(fields).Log()
}

func (o *logger) Warn(message string, fields Fields) {
	o.Entry(WarnLevel, message).FieldMerge(fields).Log()
}

func (o *logger) Error(message string, err error, fields Fields) {
	o.Entry(ErrorLevel, message).ErrorAdd(true, err).FieldMerge(fields).Log()
}

// Discard returns a Logger that drops every entry, used as the default
// when a ConnectionConfiguration does not supply one.
func Discard() Logger {
	return New(NilLevel)
}
