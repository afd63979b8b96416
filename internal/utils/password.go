package utils

import (
    "errors"
    "strings"

    "golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

func HashPassword(plain string) (string, error) {
    if len(strings.TrimSpace(plain)) < MinPasswordLength {
        return "", ErrPasswordTooShort
    }
    hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
    if err != nil {
        return "", err
    }
    return string(hashed), nil
}

// CheckPassword reports whether plain matches the bcrypt hash. An empty
// hash never matches.
func CheckPassword(hashed, plain string) bool {
    if hashed == "" {
        return false
    }
    return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
