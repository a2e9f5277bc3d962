package schoolpay

import (
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// WebhookSignature is hex(sha256(apiSecret + receiptNumber)).
func WebhookSignature(apiSecret, receiptNumber string) string {
	sum := sha256.Sum256([]byte(apiSecret + receiptNumber))
	return hex.EncodeToString(sum[:])
}

// VerifyWebhookSignature compares a provided signature against the expected
// one in constant time, ignoring hex case.
func VerifyWebhookSignature(apiSecret, receiptNumber, signature string) bool {
	if apiSecret == "" || signature == "" {
		return false
	}
	expected := WebhookSignature(apiSecret, receiptNumber)
	provided := strings.ToLower(strings.TrimSpace(signature))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

// SyncRequestHash is the provider's request hash, hex(md5(schoolCode + date + apiSecret)).
// For range requests date is the start of the range.
func SyncRequestHash(schoolCode, date, apiSecret string) string {
	sum := md5.Sum([]byte(schoolCode + date + apiSecret))
	return hex.EncodeToString(sum[:])
}
