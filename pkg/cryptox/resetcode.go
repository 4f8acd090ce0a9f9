package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ResetCodePeriod is how long a password reset code stays valid.
const ResetCodePeriod = 5 * time.Minute

var resetCodeOpts = totp.ValidateOpts{
	Period:    uint(ResetCodePeriod / time.Second),
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateResetCode derives a six digit code from a fresh random secret at
// time t. The secret is discarded; callers store the code and its issue
// time and check expiry themselves.
func GenerateResetCode(t time.Time) (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset secret: %w", err)
	}
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)

	code, err := totp.GenerateCodeCustom(secret, t, resetCodeOpts)
	if err != nil {
		return "", fmt.Errorf("generate reset code: %w", err)
	}
	return code, nil
}

// ResetCodeEqual compares two codes in constant time.
func ResetCodeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
