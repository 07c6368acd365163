package models

import "time"

// TokenKind — назначение токена. Токен одного вида не принимается там,
// где ожидается другой.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Valid сообщает, известен ли вид токена.
func (k TokenKind) Valid() bool {
	return k == TokenAccess || k == TokenRefresh
}

// TokenPair — пара токенов, выдаваемая при входе и обновлении.
//
// Описание:
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары;
//   - AccessTTL/RefreshTTL — сроки жизни, из них считается Max-Age cookie.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}
