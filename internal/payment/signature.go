package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignatureHeader is where the gateway puts the HMAC of the raw request body.
const SignatureHeader = "X-Callback-Signature"

// ComputeSignature returns the lowercase hex HMAC-SHA256 of body under secret.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the gateway-provided signature against the raw body.
// Comparison is constant-time; hex case differences are tolerated.
func VerifySignature(secret string, body []byte, provided string) bool {
	if provided == "" {
		return false
	}
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(provided)))
}
