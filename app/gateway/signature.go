package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header the vendor signs webhook deliveries with.
const SignatureHeader = "X-ANET-Signature"

// VerifyWebhookSignature checks the HMAC-SHA512 signature over the raw
// webhook body. The header value is "sha512=" followed by the hex digest.
func VerifyWebhookSignature(payload []byte, signatureHeader, signatureKey string) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(signatureKey) == "" {
		return false
	}

	hexDigest := signatureHeader
	if i := strings.IndexByte(signatureHeader, '='); i >= 0 {
		if !strings.EqualFold(signatureHeader[:i], "sha512") {
			return false
		}
		hexDigest = signatureHeader[i+1:]
	}

	candidate, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, []byte(signatureKey))
	_, _ = mac.Write(payload)
	return hmac.Equal(candidate, mac.Sum(nil))
}
