package engine

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashAdminPassword returns a bcrypt hash suitable for admin.password_hash.
func HashAdminPassword(password string, cost int) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password required")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAdminPassword compares password with the configured hash.
func (e Engine) CheckAdminPassword(password string) error {
	if e.Config == nil || e.Config.Admin.PasswordHash == "" {
		return ErrAdminPasswordUnset
	}
	if err := bcrypt.CompareHashAndPassword([]byte(e.Config.Admin.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
