package token

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher — односторонний хэш паролей.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// BcryptHasher хэширует пароли bcrypt. Открытый пароль не логируется и не хранится.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher возвращает хэшер с заданной стоимостью.
// cost <= 0 означает bcrypt.DefaultCost; значение зажимается в [MinCost, MaxCost].
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}

	return &BcryptHasher{Cost: cost}
}

// Hash возвращает bcrypt-хэш пароля.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	const op = "token.BcryptHasher.Hash"

	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(b), nil
}

// Verify сравнивает пароль с хэшем. Несовпадение и битый хэш дают false.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
