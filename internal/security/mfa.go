package security

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"image/png"
	"math/big"

	"github.com/pquerna/otp/totp"
)

// TOTPEnrollment carries everything the client needs to finish TOTP setup.
type TOTPEnrollment struct {
	Secret  string
	URI     string
	QRImage string // base64-encoded PNG
}

// GenerateTOTPEnrollment creates a fresh TOTP secret with an otpauth:// URI
// and a scannable QR code (Google Authenticator compatible).
func GenerateTOTPEnrollment(issuer string, accountEmail string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("render qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("encode qr png: %w", err)
	}

	return TOTPEnrollment{
		Secret:  key.Secret(),
		URI:     key.URL(),
		QRImage: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// ValidateTOTP checks a 6-digit code against the secret within the standard
// time window.
func ValidateTOTP(code string, secret string) bool {
	return totp.Validate(code, secret)
}

const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateBackupCodes returns n single-use recovery codes alongside their
// hashes. The plaintext codes are shown to the user exactly once; only the
// hashes are persisted.
func GenerateBackupCodes(n int) (codes []string, hashes []string, err error) {
	codes = make([]string, 0, n)
	hashes = make([]string, 0, n)
	for i := 0; i < n; i++ {
		code, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, HashBackupCode(code))
	}
	return codes, hashes, nil
}

func randomBackupCode() (string, error) {
	buf := make([]byte, 10)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate backup code: %w", err)
		}
		buf[i] = backupCodeAlphabet[idx.Int64()]
	}
	return string(buf[:5]) + "-" + string(buf[5:]), nil
}

func HashBackupCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ConsumeBackupCode matches code against the stored hashes. On a match it
// returns the remaining hashes with the consumed one removed.
func ConsumeBackupCode(code string, hashes []string) ([]string, bool) {
	target := HashBackupCode(code)
	for i, h := range hashes {
		if subtle.ConstantTimeCompare([]byte(h), []byte(target)) == 1 {
			remaining := make([]string, 0, len(hashes)-1)
			remaining = append(remaining, hashes[:i]...)
			remaining = append(remaining, hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}

// GenerateEmailCode returns a 6-digit numeric challenge for email MFA.
func GenerateEmailCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate email code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
