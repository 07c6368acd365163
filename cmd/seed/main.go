// seed создаёт пользователя напрямую в базе: первый администратор или
// тестовая учётная запись для локального окружения.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/risk-assistant/internal/config"
	"github.com/pribylovaa/risk-assistant/internal/models"
	"github.com/pribylovaa/risk-assistant/internal/service"
	"github.com/pribylovaa/risk-assistant/internal/storage/postgres"
	"github.com/pribylovaa/risk-assistant/internal/token"
)

func main() {
	var (
		configPath string
		in         models.UserCreate
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.StringVar(&in.Name, "name", "", "user name (required)")
	flag.StringVar(&in.Email, "email", "", "user email (required)")
	flag.StringVar(&in.Password, "password", "", "user password, at least 8 characters")
	flag.StringVar(&in.Role, "role", models.RoleUser, "user role")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, cfg, log, in); err != nil {
		log.Error("seed_failed", slog.String("err", err.Error()))
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger, in models.UserCreate) error {
	str, err := postgres.New(ctx, cfg.DB.DatabaseURL)
	if err != nil {
		return err
	}
	defer str.Close()

	if cfg.DB.MigrateOnStart {
		if err := str.Migrate(ctx, log); err != nil {
			return err
		}
	}

	// Токены seed не выпускает: Manager нужен только конструктору сервиса.
	srvc := service.New(str, token.NewManager(cfg.Auth, token.NewMemoryRevocations()), token.NewBcryptHasher(0))

	info, err := srvc.CreateUser(ctx, in)
	if errors.Is(err, service.ErrUserExists) {
		log.Warn("seed_user_exists", slog.String("name", in.Name))
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("seed_user_created", slog.Int64("id", info.ID), slog.String("name", info.Name), slog.String("role", info.Role))
	fmt.Println(info.ID)
	return nil
}
