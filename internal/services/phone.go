package services

import (
	"fmt"
	"strings"
)

const (
	maxPhoneDigits     = 15
	mexicoCountryCode  = "52"
	mexicoNationalSize = 10
)

// National dialing prefixes, longest first: Mexican mobile/long-distance ones and the generic trunk "0"
var trunkPrefixes = []string{"044", "045", "01", "0"}

// PhoneNormalizer turns free-form phone input into the digit string used by wa.me links
type PhoneNormalizer struct {
	DefaultCountryCode string
	MinDigits          int
}

func NewPhoneNormalizer(defaultCountryCode string, minDigits int) *PhoneNormalizer {
	if minDigits <= 0 {
		minDigits = 10
	}
	return &PhoneNormalizer{
		DefaultCountryCode: strings.TrimPrefix(strings.TrimSpace(defaultCountryCode), "+"),
		MinDigits:          minDigits,
	}
}

// Normalize returns the international number as digits only, without "+".
// Numbers without "+" or "00" lose their trunk prefix and, at most 10 digits long,
// get the default country code. A national number still starting with 0 is invalid.
func (p *PhoneNormalizer) Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	international := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if !international && strings.HasPrefix(digits, "00") {
		digits = digits[2:]
		international = true
	}

	if digits == "" {
		return "", fmt.Errorf("%w: %q has no digits", ErrInvalidPhone, raw)
	}

	if !international {
		digits = stripTrunkPrefix(digits)
		if strings.HasPrefix(digits, "0") {
			return "", fmt.Errorf("%w: %q has an unknown national prefix", ErrInvalidPhone, raw)
		}
		if len(digits) < p.MinDigits {
			return "", fmt.Errorf("%w: %q is too short", ErrInvalidPhone, raw)
		}
		if len(digits) <= mexicoNationalSize {
			digits = p.DefaultCountryCode + digits
		}
	}

	// WhatsApp addresses Mexican mobiles with the legacy "1" after the country code
	if strings.HasPrefix(digits, mexicoCountryCode) && len(digits) == len(mexicoCountryCode)+mexicoNationalSize {
		digits = mexicoCountryCode + "1" + digits[len(mexicoCountryCode):]
	}

	if len(digits) < p.MinDigits || len(digits) > maxPhoneDigits {
		return "", fmt.Errorf("%w: %q has %d digits", ErrInvalidPhone, raw, len(digits))
	}

	return digits, nil
}

// IsUsable reports whether raw normalizes successfully
func (p *PhoneNormalizer) IsUsable(raw string) bool {
	_, err := p.Normalize(raw)
	return err == nil
}

func stripTrunkPrefix(digits string) string {
	for _, prefix := range trunkPrefixes {
		rest, ok := strings.CutPrefix(digits, prefix)
		if ok && len(rest) <= mexicoNationalSize && !strings.HasPrefix(rest, "0") {
			return rest
		}
	}
	return digits
}
