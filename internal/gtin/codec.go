// Package gtin implements the GS1 Mod-10 check digit codec that converts
// between the 12-digit allocation form and the 13-digit distributable form.
//
// All functions are pure. The 12-digit form is what ranges and assignments
// store; the 13-digit form is what leaves the system.
package gtin

import (
	"strings"

	dErrors "gtind/pkg/domain-errors"
)

// Length of the allocation form (without check digit).
const Length12 = 12

// Length of the distributable form (with check digit).
const Length13 = 13

// CheckDigit computes the GS1 Mod-10 check digit for a 12-digit GTIN.
// Shorter inputs are left-zero-padded first; longer inputs are rejected.
// Even 0-indexed positions are summed unweighted, odd positions weighted by
// three; the check digit is (10 - total mod 10) mod 10.
func CheckDigit(gtin12 string) (int, error) {
	gtin12, err := pad12(gtin12)
	if err != nil {
		return 0, err
	}

	var sumEven, sumOdd int
	for i, c := range gtin12 {
		d := int(c - '0')
		if i%2 == 0 {
			sumEven += d
		} else {
			sumOdd += d
		}
	}

	total := sumEven + sumOdd*3
	return (10 - total%10) % 10, nil
}

// AddCheckDigit appends the computed check digit, producing the 13-digit form.
func AddCheckDigit(gtin12 string) (string, error) {
	gtin12, err := pad12(gtin12)
	if err != nil {
		return "", err
	}
	check, err := CheckDigit(gtin12)
	if err != nil {
		return "", err
	}
	return gtin12 + string(rune('0'+check)), nil
}

// StripCheckDigit returns the 12-digit allocation form of a 13-digit GTIN.
func StripCheckDigit(gtin13 string) (string, error) {
	if len(gtin13) != Length13 || !allDigits(gtin13) {
		return "", dErrors.Newf(dErrors.CodeInvalidLength, "expected %d digits, got %q", Length13, gtin13)
	}
	return gtin13[:Length12], nil
}

// ValidateCheckDigit reports whether a 13-digit GTIN carries the correct
// check digit. Inputs of any other length are invalid.
func ValidateCheckDigit(gtin13 string) bool {
	if len(gtin13) != Length13 || !allDigits(gtin13) {
		return false
	}
	check, err := CheckDigit(gtin13[:Length12])
	if err != nil {
		return false
	}
	return int(gtin13[Length12]-'0') == check
}

// Normalize converts any accepted GTIN spelling to the 12-digit allocation
// form: 13-digit inputs lose their check digit, shorter inputs are
// left-zero-padded. The registry echoes identifiers in either form, so
// reconciliation matches through this function.
func Normalize(gtin string) (string, error) {
	if len(gtin) == Length13 {
		return StripCheckDigit(gtin)
	}
	return pad12(gtin)
}

func pad12(gtin string) (string, error) {
	if len(gtin) > Length12 || !allDigits(gtin) {
		return "", dErrors.Newf(dErrors.CodeInvalidLength, "expected at most %d digits, got %q", Length12, gtin)
	}
	if len(gtin) < Length12 {
		gtin = strings.Repeat("0", Length12-len(gtin)) + gtin
	}
	return gtin, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
