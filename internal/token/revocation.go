package token

import (
	"context"
	"sync"
	"time"

	"github.com/pribylovaa/risk-assistant/internal/models"
)

// RevocationStore — множество отозванных jti по видам токенов.
//
// Revoke работает как "добавить, если нет" и сообщает, была ли запись
// добавлена этим вызовом: на этом держится однократность ротации refresh.
// Запись хранится не дольше срока жизни самого токена.
type RevocationStore interface {
	Revoke(ctx context.Context, kind models.TokenKind, jti string, expiresAt time.Time) (bool, error)
	IsRevoked(ctx context.Context, kind models.TokenKind, jti string) (bool, error)
}

// MemoryRevocations — хранилище отозванных jti в памяти процесса.
// Подходит для одного экземпляра сервиса; для нескольких — cache.RedisRevocations.
type MemoryRevocations struct {
	mu      sync.RWMutex
	revoked map[models.TokenKind]map[string]time.Time
}

// NewMemoryRevocations создаёт пустое хранилище.
func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{
		revoked: map[models.TokenKind]map[string]time.Time{
			models.TokenAccess:  {},
			models.TokenRefresh: {},
		},
	}
}

// Revoke добавляет jti, если его ещё нет.
func (m *MemoryRevocations) Revoke(_ context.Context, kind models.TokenKind, jti string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.revoked[kind]
	if !ok {
		set = map[string]time.Time{}
		m.revoked[kind] = set
	}

	if _, exists := set[jti]; exists {
		return false, nil
	}
	set[jti] = expiresAt

	return true, nil
}

// IsRevoked сообщает, отозван ли jti.
func (m *MemoryRevocations) IsRevoked(_ context.Context, kind models.TokenKind, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.revoked[kind][jti]
	return ok, nil
}

// Purge удаляет записи, чей токен истёк к моменту now, и возвращает их число.
// Такой токен и так не пройдёт проверку срока, поэтому удаление безопасно.
func (m *MemoryRevocations) Purge(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, set := range m.revoked {
		for jti, exp := range set {
			if !now.Before(exp) {
				delete(set, jti)
				n++
			}
		}
	}

	return n
}

// Len возвращает общее число записей.
func (m *MemoryRevocations) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, set := range m.revoked {
		n += len(set)
	}

	return n
}

var _ RevocationStore = (*MemoryRevocations)(nil)
