/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2021 Nicolas JUHEL
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

package logger

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	FieldTime    = "time"
	FieldLevel   = "level"
	FieldConn    = "conn_id"
	FieldMessage = "message"
	FieldError   = "error"
	FieldData    = "data"
)

// Entry is a single structured log event, built with a fluent API and
// flushed to the underlying logrus logger by Log().
type Entry struct {
	log func() *logrus.Logger

	//Time is the time of the event (can be empty time if disabled timestamp)
	Time time.Time `json:"time"`

	//Level define the level of the entry (cannot be empty or nil)
	Level Level `json:"level"`

	//Message define the main message of the entry (can be empty)
	Message string `json:"message"`

	//Error define a slice of error interface (can be nil, or a slice with one or more nil values)
	Error []error `json:"error"`

	//Data is an unknown type data to add to logger (can be nil)
	Data interface{} `json:"data"`

	//Fields are a list of custom information to add to log entry (can be nil or can overwrite Entry values)
	Fields Fields `json:"fields"`
}

// FieldAdd allow to add one couple key/val as type string/interface into the custom field of the entry.
func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	e.Fields = e.Fields.Add(key, val)
	return e
}

// FieldMerge allow to merge a Field pointer into the custom field of the entry.
func (e *Entry) FieldMerge(fields Fields) *Entry {
	e.Fields = e.Fields.Merge(fields)
	return e
}

// FieldSet allow to change the custom field of the entry with the given Fields in parameter.
func (e *Entry) FieldSet(fields Fields) *Entry {
	e.Fields = fields
	return e
}

func (e *Entry) DataSet(data interface{}) *Entry {
	e.Data = data
	return e
}

func (e *Entry) ErrorAdd(cleanNil bool, err ...error) *Entry {
	for _, er := range err {
		if cleanNil && er == nil {
			continue
		}
		e.Error = append(e.Error, er)
	}
	return e
}

// Log flushes the entry through the bound logrus logger. No-op if the
// entry has no logger bound (e.g. a detached/templated entry).
func (e *Entry) Log() {
	if e.log == nil {
		return
	}

	log := e.log()
	if log == nil {
		return
	}

	tag := NewFields().Add(FieldLevel, e.Level.String())

	if !e.Time.IsZero() {
		tag = tag.Add(FieldTime, e.Time.Format(time.RFC3339Nano))
	}

	if e.Message != "" {
		tag = tag.Add(FieldMessage, e.Message)
	}

	if len(e.Error) > 0 {
		msg := make([]string, 0, len(e.Error))
		for _, er := range e.Error {
			if er == nil {
				continue
			}
			msg = append(msg, er.Error())
		}
		if len(msg) > 0 {
			tag = tag.Add(FieldError, strings.Join(msg, ", "))
		}
	}

	if e.Data != nil {
		tag = tag.Add(FieldData, e.Data)
	}

	if len(e.Fields) > 0 {
		tag = tag.Merge(e.Fields)
	}

	if e.Level == NilLevel {
		return
	}

	log.WithFields(tag.Logrus()).Log(e.Level.Logrus())
}
