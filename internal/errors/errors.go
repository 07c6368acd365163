// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход он принимает ошибку сервисного слоя (обёрнутые sentinel-ошибки),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное detail без утечки деталей.
//
// Тело ответа всегда {"detail": "..."}.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/risk-assistant/internal/oauth"
	"github.com/pribylovaa/risk-assistant/internal/rag"
	"github.com/pribylovaa/risk-assistant/internal/service"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// DetailInternal — detail для любых непредусмотренных ошибок.
const DetailInternal = "Internal server error."

// ErrInvalidBody — тело запроса не разобралось как ожидаемый JSON.
var ErrInvalidBody = stderrors.New("invalid request body")

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// mapping — порядок важен: более узкие ошибки раньше общих.
var mapping = []struct {
	err    error
	status int
	detail string
}{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Incorrect username or password"},
	{service.ErrRefreshTokenMissing, http.StatusUnauthorized, "Refresh token missing"},
	{service.ErrInvalidRefreshPayload, http.StatusUnauthorized, "Invalid refresh token payload"},
	{service.ErrInvalidRefreshToken, http.StatusUnauthorized, "Invalid or expired refresh token"},
	{service.ErrUserUnavailable, http.StatusUnauthorized, "User inactive or not found"},
	{service.ErrUnauthenticated, http.StatusUnauthorized, "Not authenticated."},
	{service.ErrInactiveUser, http.StatusBadRequest, "Inactive user"},
	{service.ErrOAuthState, http.StatusBadRequest, "State mismatch or missing"},
	{oauth.ErrInvalidIDToken, http.StatusBadRequest, "Invalid Google ID Token"},
	{rag.ErrEmptyQuery, http.StatusBadRequest, "task and element are required"},
	{ErrInvalidBody, http.StatusBadRequest, "Invalid request body."},
	{service.ErrForbidden, http.StatusForbidden, "Not enough permissions."},
	{service.ErrUserNotFound, http.StatusNotFound, "User not found"},
	{service.ErrEmailConflict, http.StatusConflict, "Email already registered with another account."},
	{service.ErrUserExists, http.StatusConflict, "User with this name or email already exists."},
	{service.ErrOAuthDisabled, http.StatusNotImplemented, "Google login is not configured."},
	{service.ErrRAGDisabled, http.StatusServiceUnavailable, "RAG is not configured."},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "Request timed out."},
	{context.Canceled, StatusClientClosedRequest, "Request canceled."},
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и тело ответа.
//
// Поведение:
//   - err == nil - это программная ошибка вызова: возвращаем 500,
//     чтобы не послать "200 OK" с телом ошибки и не маскировать баг;
//   - ValidationError - 400 с его сообщением;
//   - oauth.UpstreamError - статус провайдера (или 500, если ответа не было);
//   - известные sentinel-ошибки - по таблице mapping;
//   - прочее - 500 без утечки деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{Detail: DetailInternal}
	}

	var ve *service.ValidationError
	if stderrors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{Detail: ve.Msg}
	}

	var ue *oauth.UpstreamError
	if stderrors.As(err, &ue) {
		status := ue.Status
		if status < 400 || status > 599 {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Detail: "Failed to get Google tokens"}
	}

	for _, m := range mapping {
		if stderrors.Is(err, m.err) {
			return m.status, ErrorResponse{Detail: m.detail}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{Detail: DetailInternal}
}

// WriteError — хелпер для HTTP-хендлеров.
func WriteError(w http.ResponseWriter, err error) {
	status, resp := ToHTTP(err)
	WriteDetail(w, status, resp.Detail)
}

// WriteDetail пишет {"detail": detail} с заданным статусом.
func WriteDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Detail: detail})
}
