package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Headers that may carry the shared secret. The first is the one the
// messaging platform sets when a subscription is created with a secret.
const (
	SecretHeader    = "X-Max-Bot-Api-Secret"
	AltSecretHeader = "X-Webhook-Secret"
	SignatureHeader = "X-Hub-Signature-256"
	signatureScheme = "sha256="
)

var errMissingSecret = errors.New("no secret header or signature present")

// ValidateSecret authenticates r against secret. The request passes when
// either secret header matches, or when the X-Hub-Signature-256 header is a
// valid HMAC-SHA256 of body keyed with secret. An empty secret disables the
// check.
func ValidateSecret(r *http.Request, body []byte, secret string) error {
	if secret == "" {
		return nil
	}
	for _, h := range []string{SecretHeader, AltSecretHeader} {
		if v := r.Header.Get(h); v != "" {
			if subtle.ConstantTimeCompare([]byte(v), []byte(secret)) == 1 {
				return nil
			}
			return fmt.Errorf("%s does not match", h)
		}
	}
	if sig := r.Header.Get(SignatureHeader); sig != "" {
		return validateSignature(sig, body, secret)
	}
	return errMissingSecret
}

func validateSignature(header string, body []byte, secret string) error {
	if !strings.HasPrefix(header, signatureScheme) {
		return fmt.Errorf("%s must start with %q", SignatureHeader, signatureScheme)
	}
	provided, err := hex.DecodeString(strings.TrimPrefix(header, signatureScheme))
	if err != nil {
		return fmt.Errorf("invalid hex in %s: %w", SignatureHeader, err)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(mac.Sum(nil), provided) {
		return fmt.Errorf("HMAC signature mismatch")
	}
	return nil
}
