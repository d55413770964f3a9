package auth

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72
)

var (
	hashCost = bcrypt.DefaultCost

	dummyOnce sync.Once
	dummyHash []byte
)

var commonPasswords = map[string]bool{
	"password":    true,
	"password1":   true,
	"password123": true,
	"12345678":    true,
	"123456789":   true,
	"1234567890":  true,
	"qwertyuiop":  true,
	"qwerty123":   true,
	"iloveyou":    true,
	"sunshine":    true,
	"princess":    true,
	"football":    true,
	"baseball":    true,
	"welcome1":    true,
	"letmein1":    true,
	"abc12345":    true,
	"11111111":    true,
	"00000000":    true,
	"admin123":    true,
	"passw0rd":    true,
}

// SetHashCost overrides the bcrypt cost; tests lower it to bcrypt.MinCost.
func SetHashCost(cost int) {
	hashCost = cost
}

func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword is the credential verifier: it reports whether plain matches hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnComparison spends the same work as CheckPassword against a throwaway hash,
// so callers can fail lookups without revealing that the subject is missing.
func BurnComparison(plain string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), hashCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

// ValidatePassword applies the strength policy. related holds values the password
// must not equal, such as the username or email.
func ValidatePassword(plain string, related ...string) error {
	var problems []string

	if len(plain) < MinPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}

	if len(plain) > MaxPasswordBytes {
		problems = append(problems, "This password is too long. It must contain at most 72 bytes.")
	}

	if plain != "" && strings.IndexFunc(plain, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		problems = append(problems, "This password is entirely numeric.")
	}

	if commonPasswords[strings.ToLower(plain)] {
		problems = append(problems, "This password is too common.")
	}

	lower := strings.ToLower(plain)
	for _, attr := range related {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		local, _, _ := strings.Cut(attr, "@")
		if lower == attr || lower == local {
			problems = append(problems, "The password is too similar to your account details.")
			break
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, " "))
	}

	return nil
}
