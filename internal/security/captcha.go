package security

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaVerifier checks challenge tokens against the provider's verify
// endpoint. With no secret configured verification is a no-op, which keeps
// local development working without provider credentials.
type CaptchaVerifier struct {
	secret    string
	verifyURL string
	client    *http.Client
}

func NewCaptchaVerifier(secret string, verifyURL string) *CaptchaVerifier {
	return &CaptchaVerifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *CaptchaVerifier) Verify(ctx context.Context, token string, remoteIP string) error {
	if v.secret == "" {
		return nil
	}
	if token == "" {
		return fmt.Errorf("captcha token required")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("captcha verify: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode captcha response: %w", err)
	}
	if !body.Success {
		return fmt.Errorf("captcha verification failed")
	}
	return nil
}
