package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderCSRFToken = "X-CSRF-Token"

	csrfTokenTTL = 2 * time.Hour
)

// IssueCSRFToken mints a token bound to the session: nonce.issuedAt.signature
// with the signature an HMAC over sessionID, nonce and timestamp.
func IssueCSRFToken(secret string, sessionID string, nonce string) string {
	issued := strconv.FormatInt(time.Now().Unix(), 10)
	sig := csrfSignature(secret, sessionID, nonce, issued)
	return strings.Join([]string{nonce, issued, sig}, ".")
}

// ValidateCSRFToken checks the signature and the issue window. The nonce is
// returned so the caller can enforce single use.
func ValidateCSRFToken(secret string, sessionID string, token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed csrf token")
	}
	nonce, issued, sig := parts[0], parts[1], parts[2]

	ts, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed csrf timestamp")
	}
	if time.Since(time.Unix(ts, 0)) > csrfTokenTTL {
		return "", fmt.Errorf("csrf token expired")
	}

	expected := csrfSignature(secret, sessionID, nonce, issued)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", fmt.Errorf("invalid csrf token")
	}
	return nonce, nil
}

func csrfSignature(secret string, sessionID string, nonce string, issued string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join([]string{sessionID, nonce, issued}, "\n")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
