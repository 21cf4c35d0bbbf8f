package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	bcryptCost = 10

	minLoginLen    = 3
	maxLoginLen    = 32
	minPasswordLen = 6
	maxNameLen     = 64
)

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword compares a bcrypt hashed password with its plaintext version.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// normalizeLogin trims login and checks it against the login charset.
// Logins travel inside quoted protocol values, so quotes and spaces are refused.
func normalizeLogin(login string) (string, error) {
	login = strings.TrimSpace(login)
	if len(login) < minLoginLen || len(login) > maxLoginLen {
		return "", ErrInvalidLogin
	}
	for i := 0; i < len(login); i++ {
		c := login[i]
		ok := c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.'
		if !ok {
			return "", ErrInvalidLogin
		}
	}
	return login, nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen || strings.ContainsRune(password, '\'') {
		return ErrInvalidPassword
	}
	return nil
}

// normalizeName trims name, falling back to login when it is empty.
func normalizeName(name, login string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return login, nil
	}
	if len(name) > maxNameLen || strings.ContainsRune(name, '\'') {
		return "", ErrInvalidName
	}
	return name, nil
}
