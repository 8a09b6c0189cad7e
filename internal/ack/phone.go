package ack

import (
	"errors"
	"strings"
)

// DefaultCountryCode is prepended to numbers that arrive without one.
const DefaultCountryCode = "1"

// errEmptyNumber is returned when a number is blank after cleanup.
var errEmptyNumber = errors.New("phone number is empty")

// NormalizeNumber strips common separators from a phone number and ensures a
// leading country code is present. It is applied identically to numbers on
// file for a recipient and to numbers extracted from inbound replies, so that
// both sides of every equality comparison share one canonical form.
func NormalizeNumber(number, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	var b strings.Builder

	for _, r := range number {
		switch r {
		case ' ', '-', '(', ')', '.', '+':
		default:
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return "", errEmptyNumber
	}

	if !strings.HasPrefix(cleaned, countryCode) {
		cleaned = countryCode + cleaned
	}

	return cleaned, nil
}
