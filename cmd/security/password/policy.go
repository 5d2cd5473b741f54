package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks a candidate password against the policy.
// Length is measured in runes so multi-byte input is not penalized.
func (c Config) Validate(password string) error {
	switch n := utf8.RuneCountInString(password); {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && looksVeryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

// commonPasswords is a tiny deny-list, not a breach corpus.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"123456": {}, "12345678": {}, "123456789": {}, "1234567890": {},
	"qwerty": {}, "qwerty123": {}, "qwertyuiop": {}, "11111111": {},
	"letmein": {}, "iloveyou": {}, "abc12345": {}, "welcome1": {},
	"chai1234": {}, "changeme": {},
}

// looksVeryWeak rejects trivially guessable secrets. It is not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := commonPasswords[strings.ToLower(s)]; ok {
		return true
	}
	return singleRune(s) || shortPIN(s)
}

func singleRune(s string) bool {
	first, _ := utf8.DecodeRuneInString(s)
	return strings.Trim(s, string(first)) == ""
}

// shortPIN matches digit-only secrets under 12 characters.
func shortPIN(s string) bool {
	if utf8.RuneCountInString(s) >= 12 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0
}
