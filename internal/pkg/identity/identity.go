// identity хранит личность аутентифицированного запроса в context.Context.
// Значение кладёт Auth-мидлварь и живёт оно один запрос.
package identity

import (
	"context"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

type ctxKey struct{}

// Identity — текущий пользователь и проверенные claims его access-токена.
type Identity struct {
	User   models.UserInfo
	Claims *token.Claims
}

// Into кладёт личность в контекст.
func Into(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From достаёт личность из контекста.
func From(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// User возвращает текущего пользователя.
func User(ctx context.Context) (models.UserInfo, bool) {
	id, ok := From(ctx)
	return id.User, ok
}
