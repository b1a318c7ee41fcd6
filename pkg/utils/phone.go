package utils

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhoneNumber parses a phone number and returns it in E.164 format
// (e.g. "+15551234567"). Numbers without a leading + must include a country
// code recognizable by the parser, otherwise an error is returned.
func NormalizePhoneNumber(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return "", errors.New("phone number cannot be empty")
	}

	num, err := phonenumbers.Parse(trimmed, "")
	if err != nil {
		return "", errors.New("phone number must include a country code (E.164 format)")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// ValidatePhoneNumber reports whether the given number is a valid E.164 phone number
func ValidatePhoneNumber(phone string) bool {
	_, err := NormalizePhoneNumber(phone)
	return err == nil
}

// MaskPhoneNumber hides all but the last two digits for display and logging
// Example: "+15551234567" -> "+*********67"
func MaskPhoneNumber(phone string) string {
	if len(phone) <= 3 {
		return phone
	}

	visible := 2
	masked := []byte(phone)
	for i := 1; i < len(masked)-visible; i++ {
		masked[i] = '*'
	}
	return string(masked)
}
