package xendit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nclex311/billing/pkg/config"
)

// CallbackVerifier authenticates inbound webhook deliveries. One shared
// secret serves both checks: it is the expected value of the callback-token
// header and the HMAC key for the optional body signature. With no secret
// configured every verification fails.
type CallbackVerifier struct {
	secret string
}

func NewCallbackVerifier(cfg *config.Config) *CallbackVerifier {
	return &CallbackVerifier{secret: cfg.Gateway.CallbackToken}
}

// Verify applies the delivery authentication policy: the token must match,
// and when the gateway supplies a body signature it must match as well.
func (v *CallbackVerifier) Verify(token, signature string, raw []byte) bool {
	if !v.VerifyToken(token) {
		return false
	}
	if strings.TrimSpace(signature) != "" && !v.VerifySignature(raw, signature) {
		return false
	}
	return true
}

func (v *CallbackVerifier) VerifyToken(received string) bool {
	if v.secret == "" || received == "" {
		return false
	}
	return constantTimeEqual([]byte(received), []byte(v.secret))
}

// SignRaw computes the hex HMAC-SHA256 of the exact payload bytes.
func (v *CallbackVerifier) SignRaw(raw []byte) string {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(raw)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload serializes a structured payload and signs the result.
// encoding/json emits map keys in sorted order, so equal payloads always
// produce equal signatures regardless of construction order.
func (v *CallbackVerifier) SignPayload(payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}
	return v.SignRaw(raw), nil
}

func (v *CallbackVerifier) VerifySignature(raw []byte, received string) bool {
	received = strings.ToLower(strings.TrimSpace(received))
	if v.secret == "" || received == "" {
		return false
	}
	return constantTimeEqual([]byte(v.SignRaw(raw)), []byte(received))
}

// constantTimeEqual hashes both sides before the constant-time compare so the
// cost is independent of length and of how much of a prefix matches.
func constantTimeEqual(a, b []byte) bool {
	ha := sha256.Sum256(a)
	hb := sha256.Sum256(b)
	return hmac.Equal(ha[:], hb[:])
}
