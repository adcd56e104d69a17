package auth

import (
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/julianstephens/tally/internal/storage"
)

// MinPasswordLen matches the hosted auth service's default policy.
const MinPasswordLen = 6

var bcryptCost = bcrypt.DefaultCost

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizeEmail trims and lower-cases an address for lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignUp checks the credentials a new account is created with.
func ValidateSignUp(email, password string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return storage.NewError(storage.KindInvalid, storage.MsgInvalidEmail, err)
	}
	if len(password) < MinPasswordLen {
		return storage.NewError(storage.KindInvalid, storage.MsgPasswordTooShort, nil)
	}
	if len(password) > 72 {
		// bcrypt ignores bytes past 72
		return storage.NewError(storage.KindInvalid, "Password should be at most 72 characters.", nil)
	}
	return nil
}
