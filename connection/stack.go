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

package connection

import (
	libsck "github.com/fengmingdev/nexuskit/socks5"
	libtrn "github.com/fengmingdev/nexuskit/transport"
)

// buildStack composes raw TCP ⇒ optional SOCKS5 tunnel ⇒ optional TLS, per
// spec.md's data-flow diagram. Connect() on the returned Transport drives
// the whole chain.
func buildStack(cfg Configuration) libtrn.Transport {
	var t libtrn.Transport = libtrn.NewTCP(libtrn.TCPConfig{
		Host:    proxyOrEndpointHost(cfg),
		Port:    proxyOrEndpointPort(cfg),
		Timeout: cfg.ConnectTimeout.Time(),
	})

	if cfg.Proxy.Enabled {
		t = libsck.New(t, libsck.Config{
			TargetHost: cfg.Endpoint.Host,
			TargetPort: cfg.Endpoint.Port,
			Username:   cfg.Proxy.Username,
			Password:   cfg.Proxy.Password,
		})
	}

	if cfg.TLS.Enabled {
		t = libtrn.NewTLS(t, libtrn.TLSConfig{
			ServerName:      cfg.TLS.ServerName,
			ALPN:            cfg.TLS.ALPN,
			Validation:      cfg.TLS.Validation,
			Pins:            cfg.TLS.Pins,
			AllowSelfSigned: cfg.TLS.AllowSelfSigned,
			Base:            cfg.TLS.Base,
		})
	}

	return t
}

// proxyOrEndpointHost returns the address the outermost TCP dial must reach:
// the proxy's address when a SOCKS5 tunnel is enabled, otherwise the final
// endpoint directly.
func proxyOrEndpointHost(cfg Configuration) string {
	if cfg.Proxy.Enabled {
		return cfg.Proxy.Host
	}
	return cfg.Endpoint.Host
}

func proxyOrEndpointPort(cfg Configuration) uint16 {
	if cfg.Proxy.Enabled {
		return cfg.Proxy.Port
	}
	return cfg.Endpoint.Port
}
