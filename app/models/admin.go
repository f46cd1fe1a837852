package models

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is the bcrypt cost used for admin passwords. Tests lower it.
var HashCost = bcrypt.DefaultCost

// SetPassword hashes and stores the password.
func (a *Admin) SetPassword(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return err
	}

	a.PasswordHash = hash
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (a *Admin) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}
