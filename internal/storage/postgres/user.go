package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/storage"
)

const userColumns = `id, name, email, role, is_active, password_hash, google_id, created_at, updated_at`

// SaveUser создает нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(name, email, role, is_active, password_hash, google_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Role,
		user.IsActive,
		nullIfEmpty(user.PasswordHash),
		nullIfEmpty(user.GoogleID),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}

	return nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByID", "id", id)
}

// UserByName находит пользователя по имени.
func (s *Storage) UserByName(ctx context.Context, name string) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByName", "name", name)
}

// UserByEmail находит пользователя по email (CITEXT — без учёта регистра).
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByEmail", "email", email)
}

// UserByGoogleID находит пользователя по идентификатору Google.
func (s *Storage) UserByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return s.userBy(ctx, "storage.postgres.UserByGoogleID", "google_id", googleID)
}

// UpdateUser применяет частичное обновление: меняются только непустые поля upd.
// Пустое обновление возвращает текущую запись.
func (s *Storage) UpdateUser(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	const op = "storage.postgres.UpdateUser"

	sets := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.Role != nil {
		add("role", *upd.Role)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}
	if upd.PasswordHash != nil {
		add("password_hash", nullIfEmpty(*upd.PasswordHash))
	}
	if upd.GoogleID != nil {
		add("google_id", nullIfEmpty(*upd.GoogleID))
	}

	if len(sets) == 0 {
		return s.UserByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE users SET %s, updated_at = now()
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), userColumns)

	user, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return user, nil
}

// userBy — общий поиск пользователя по одной колонке. col — только
// константы из этого файла.
func (s *Storage) userBy(ctx context.Context, op, col string, v any) (*models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, col)

	user, err := scanUser(s.db.QueryRow(ctx, query, v))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}

	return user, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user         models.User
		passwordHash *string
		googleID     *string
	)

	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.IsActive,
		&passwordHash,
		&googleID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	if googleID != nil {
		user.GoogleID = *googleID
	}

	return &user, nil
}

// mapError переводит ошибки pgx в ошибки пакета storage.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return storage.ErrAlreadyExists
	}

	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
