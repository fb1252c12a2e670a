package cryptox

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// DerivePassword computes the deterministic password of an externally
// authenticated identity: HMAC-SHA256 keyed by the provider salt over the
// normalised email and provider name. The result is a credential; never log it.
func DerivePassword(providerSalt []byte, email, provider string) string {
	mac := hmac.New(sha256.New, providerSalt)
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	mac.Write([]byte{0})
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(provider))))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
