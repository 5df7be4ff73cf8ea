package shortener

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Base62 alphabet (0-9, a-z, A-Z)
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// codeAlphabet drops 0/O, 1/I/L so codes survive being read aloud or typed
// into a payment app note.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	return randomString(alphabet, length)
}

// GeneratePaymentCode returns an uppercase code customers put in the payment
// message so the transaction can be matched to a license.
func GeneratePaymentCode(length int) (string, error) {
	return randomString(codeAlphabet, length)
}

// GenerateLicenseKey returns a key shaped like ABCD-EFGH-JKLM-NPQR.
func GenerateLicenseKey() (string, error) {
	raw, err := randomString(codeAlphabet, 16)
	if err != nil {
		return "", err
	}
	groups := make([]string, 0, 4)
	for i := 0; i < len(raw); i += 4 {
		groups = append(groups, raw[i:i+4])
	}
	return strings.Join(groups, "-"), nil
}

// NormalizeCode upper-cases and strips whitespace so user-typed codes match.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.Join(strings.Fields(code), ""))
}

func randomString(chars string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	maxRandomByte := 256 - (256 % len(chars))

	out := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if int(b) >= maxRandomByte {
				continue
			}
			out[written] = chars[int(b)%len(chars)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(out), nil
}
