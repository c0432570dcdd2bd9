package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost controls the bcrypt hashing cost. Tests lower it to bcrypt.MinCost.
var PasswordCost = 12

// HashPassword hashes the provided password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash reports whether password matches the given bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	if len(password) == 0 || len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
