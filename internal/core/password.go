package core

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the longest input bcrypt hashes without truncating.
	MaxPasswordBytes = 72
)

const passwordSpecials = "!@#$%^&*()-_=+[]{};:'\",.<>/?|`~"

// ValidatePassword reports the first rule password breaks, wrapped in
// ErrInvalidArgument.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrInvalidArgument, MinPasswordLength)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes long", ErrInvalidArgument, MaxPasswordBytes)
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	switch {
	case !lower:
		return fmt.Errorf("%w: password must contain a lowercase letter", ErrInvalidArgument)
	case !upper:
		return fmt.Errorf("%w: password must contain an uppercase letter", ErrInvalidArgument)
	case !digit:
		return fmt.Errorf("%w: password must contain a digit", ErrInvalidArgument)
	case !special:
		return fmt.Errorf("%w: password must contain one of %s", ErrInvalidArgument, passwordSpecials)
	}
	return nil
}
