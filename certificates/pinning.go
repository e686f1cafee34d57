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

package certificates

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
)

// ValidationPolicy controls how a peer certificate is accepted once the
// handshake has produced it.
type ValidationPolicy uint8

const (
	// ValidationSystem defers entirely to the platform trust store (the
	// standard crypto/tls verification chain).
	ValidationSystem ValidationPolicy = iota
	// ValidationPinned rejects any peer leaf certificate whose SHA-256
	// fingerprint is not in the configured pin set, bypassing the system
	// trust store decision.
	ValidationPinned
	// ValidationDisabled skips peer verification entirely. Only honoured
	// when AllowSelfSigned is also true.
	ValidationDisabled
)

// PinSHA256 returns the SHA-256 digest of a DER-encoded certificate, the
// form pinned certificates are compared against.
func PinSHA256(der []byte) [32]byte {
	return sha256.Sum256(der)
}

// ApplyValidationPolicy mutates a *tls.Config in place according to policy,
// wiring VerifyPeerCertificate for pinning and InsecureSkipVerify for the
// disabled/self-signed case. pins is a set of SHA-256 fingerprints of
// acceptable leaf certificates, only consulted under ValidationPinned.
func ApplyValidationPolicy(cfg *tls.Config, policy ValidationPolicy, pins [][32]byte, allowSelfSigned bool) {
	switch policy {
	case ValidationDisabled:
		if allowSelfSigned {
			cfg.InsecureSkipVerify = true
		}
	case ValidationPinned:
		cfg.InsecureSkipVerify = true
		cfg.VerifyPeerCertificate = verifyPinned(pins)
	case ValidationSystem:
		// leave the stdlib chain verification untouched.
	}
}

func verifyPinned(pins [][32]byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return ErrorCertPinningNoPeerCert.Error(nil)
		}

		leaf := PinSHA256(rawCerts[0])

		for _, p := range pins {
			if leaf == p {
				return nil
			}
		}

		return ErrorCertPinningMismatch.Error(nil)
	}
}
