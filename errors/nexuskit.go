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

package errors

// Connection core error codes, registered as a contiguous CodeError block
// starting above the teacher's own reserved test range so both can coexist
// in the same idMsgFct registry.
const (
	InvalidEndpoint CodeError = iota + 10000
	InvalidStateTransition
	ConnectTimeout
	ReadWriteTimeout
	RequestTimeout
	NotConnected
	Disconnected
	TransportError
	ProxyNegotiationFailed
	ProxyAuthenticationFailed
	TlsHandshake
	CertificatePinningFailed
	InvalidFrame
	DecompressionFailed
	CompressionFailed
	NoProtocolAdapter
	SerializationFailed
	MiddlewareError
	InterceptorRejected
	RateLimited
	HeartbeatTimeout
	AuthenticationFailed
	InvalidCredentials
	UnsupportedOperation
	InvalidPacketFormat
	InvalidHandshake
	ConnectionClosed
	ConnectError
)

// nonReconnectable lists the codes the reconnection controller must treat as
// terminal: no retry attempt follows, regardless of the active strategy.
var nonReconnectable = map[CodeError]bool{
	AuthenticationFailed: true,
	InvalidCredentials:   true,
}

// IsReconnectable reports whether the reconnection controller should
// schedule another attempt after an error carrying this code.
func IsReconnectable(c CodeError) bool {
	return !nonReconnectable[c]
}

func init() {
	RegisterIdFctMessage(InvalidEndpoint, func(code CodeError) string {
		switch code {
		case InvalidEndpoint:
			return "invalid endpoint"
		case InvalidStateTransition:
			return "invalid state transition"
		case ConnectTimeout:
			return "connect timeout"
		case ReadWriteTimeout:
			return "read/write timeout"
		case RequestTimeout:
			return "request timeout"
		case NotConnected:
			return "not connected"
		case Disconnected:
			return "disconnected"
		case TransportError:
			return "transport error"
		case ProxyNegotiationFailed:
			return "proxy negotiation failed"
		case ProxyAuthenticationFailed:
			return "proxy authentication failed"
		case TlsHandshake:
			return "tls handshake failed"
		case CertificatePinningFailed:
			return "certificate pinning failed"
		case InvalidFrame:
			return "invalid frame"
		case DecompressionFailed:
			return "decompression failed"
		case CompressionFailed:
			return "compression failed"
		case NoProtocolAdapter:
			return "no protocol adapter registered"
		case SerializationFailed:
			return "serialization failed"
		case MiddlewareError:
			return "middleware error"
		case InterceptorRejected:
			return "rejected by interceptor"
		case RateLimited:
			return "rate limited"
		case HeartbeatTimeout:
			return "heartbeat timeout"
		case AuthenticationFailed:
			return "authentication failed"
		case InvalidCredentials:
			return "invalid credentials"
		case UnsupportedOperation:
			return "unsupported operation"
		case InvalidPacketFormat:
			return "invalid packet format"
		case InvalidHandshake:
			return "invalid handshake"
		case ConnectionClosed:
			return "connection closed"
		case ConnectError:
			return "connect error"
		default:
			return ""
		}
	})
}
