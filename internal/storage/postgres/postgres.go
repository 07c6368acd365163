package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pribylovaa/risk-assistant/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Storage struct {
	db *pgxpool.Pool
}

// New создает новое подключение к PostgreSQL.
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Migrate применяет встроенные миграции goose. goose работает через
// database/sql, поэтому пул оборачивается stdlib.OpenDBFromPool.
func (s *Storage) Migrate(ctx context.Context, log *slog.Logger) (err error) {
	const op = "storage.postgres.Migrate"

	defer recoverGooseFatal(op, &err)

	db := stdlib.OpenDBFromPool(s.db)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("migrate_db_close_failed", slog.String("err", err.Error()))
		}
	}()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: log})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Ping проверяет доступность БД (для readiness).
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// gooseLogger направляет Printf-логи goose в slog.
type gooseLogger struct {
	log *slog.Logger
}

// gooseFatal — паника из gooseLogger.Fatalf.
type gooseFatal struct {
	msg string
}

// Fatalf останавливает goose паникой gooseFatal, которую Migrate возвращает
// как ошибку: процесс сервиса из-за миграций не завершается.
func (l gooseLogger) Fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	l.log.Error("goose", slog.String("detail", msg))
	panic(gooseFatal{msg: msg})
}

// recoverGooseFatal превращает gooseFatal в ошибку *err; прочие паники
// пробрасываются дальше.
func recoverGooseFatal(op string, err *error) {
	rec := recover()
	if rec == nil {
		return
	}

	f, ok := rec.(gooseFatal)
	if !ok {
		panic(rec)
	}
	*err = fmt.Errorf("%s: goose: %s", op, f.msg)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info("goose", slog.String("detail", fmt.Sprintf(format, v...)))
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
