// Package sct encodes and decodes Short Client Tokens: compact signed
// credentials of the form "SHORTNAME|expiration|patron|signature", where the
// signature is an HMAC-SHA256 over the first three pipe-joined fields using
// the issuing library's shared secret, and both halves travel in an
// Adobe-safe base64 variant.
package sct

import (
	"encoding/base64"
	"strings"
)

// Certain downstream clients choke on +, / and = in credentials, so the
// standard base64 output swaps them for characters they can parse. The
// substitution must stay bit-exact and reversible.
var (
	adobeEncoder = strings.NewReplacer("+", ":", "/", ";", "=", "@")
	adobeDecoder = strings.NewReplacer(":", "+", ";", "/", "@", "=")
)

// AdobeBase64Encode encodes bytes in the Adobe-safe base64 variant.
func AdobeBase64Encode(data []byte) string {
	return adobeEncoder.Replace(base64.StdEncoding.EncodeToString(data))
}

// AdobeBase64Decode reverses AdobeBase64Encode.
func AdobeBase64Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(adobeDecoder.Replace(strings.TrimSuffix(s, "\n")))
}
