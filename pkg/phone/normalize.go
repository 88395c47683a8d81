package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize converts a raw phone string to E.164 (+15551234567). The default
// region applies when the input lacks a country code.
func Normalize(phone, region string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}

	if region == "" {
		region = "US"
	}

	parsed, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", fmt.Errorf("failed to parse phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number")
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// CanonicalKey reduces a phone number to a stable identity for deduplication.
// It prefers the E.164 form; for numbers the parser rejects it falls back to
// the last ten digits, which collapses the common US formatting variants
// ("(555) 123-4567", "1-555-123-4567", "+1 5551234567") to the same key.
func CanonicalKey(phone, region string) string {
	if e164, err := Normalize(phone, region); err == nil {
		return e164
	}

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 10 {
		d = d[len(d)-10:]
	}
	return d
}

// IsValid reports whether a phone number parses as valid for the region.
func IsValid(phone, region string) bool {
	_, err := Normalize(phone, region)
	return err == nil
}
