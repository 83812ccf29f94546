package validate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// MinPasswordLength is the minimum acceptable password length
	MinPasswordLength = 8

	// PasswordSymbols is the fixed set of symbols the strength policy
	// accepts. Keep in sync with the signup UI's hint text.
	PasswordSymbols = "!@#$%^&*()-_=+[]{};:,.?/"
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordNoUpper  = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower  = errors.New("password must contain a lowercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain a digit")
	ErrPasswordNoSymbol = fmt.Errorf("password must contain one of %s", PasswordSymbols)
)

// CheckPasswordStrength applies the signup password policy: at least 8
// characters with an uppercase letter, a lowercase letter, a digit, and a
// symbol from PasswordSymbols. Returns the first unmet rule.
func CheckPasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	case !symbol:
		return ErrPasswordNoSymbol
	}
	return nil
}
