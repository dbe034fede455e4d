package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// HashPassword hashes a plaintext password. Costs outside bcrypt's range use the default.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword verifies a password against its hash and reports a mismatch as unauthorized.
func CheckPassword(hashed, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)); err != nil {
		return apperrors.NewUnauthorized("Incorrect username or password")
	}
	return nil
}
