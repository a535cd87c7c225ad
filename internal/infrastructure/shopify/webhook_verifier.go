package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// WebhookVerifier checks the X-Shopify-Hmac-SHA256 signature Shopify
// attaches to every webhook delivery.
type WebhookVerifier struct{}

func NewWebhookVerifier() *WebhookVerifier {
	return &WebhookVerifier{}
}

// Verify returns true when the signature header matches the HMAC-SHA256
// of the raw request body under the store's shared webhook secret
func (v *WebhookVerifier) Verify(body []byte, signature string, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
