package postgres

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

// migrateLike повторяет схему Migrate: Fatalf внутри fn становится ошибкой.
func migrateLike(fn func()) (err error) {
	defer recoverGooseFatal("storage.postgres.Migrate", &err)
	fn()
	return nil
}

func TestGooseLogger_Fatalf_StopsAndBecomesError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := gooseLogger{log: slog.New(slog.NewTextHandler(&buf, nil))}

	reached := false
	err := migrateLike(func() {
		l.Fatalf("bad migration %d", 3)
		reached = true
	})

	require.Error(t, err)
	require.Contains(t, err.Error(), "bad migration 3")
	require.False(t, reached)
	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "bad migration 3")
}

func TestGooseLogger_Printf_Info(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	gooseLogger{log: slog.New(slog.NewTextHandler(&buf, nil))}.Printf("OK %s", "00001_init_users.sql")

	require.Contains(t, buf.String(), "level=INFO")
	require.Contains(t, buf.String(), "00001_init_users.sql")
}

func TestRecoverGooseFatal_RepanicsForeignPanics(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	require.PanicsWithValue(t, boom, func() {
		_ = migrateLike(func() { panic(boom) })
	})
}

func TestRecoverGooseFatal_NoPanic(t *testing.T) {
	t.Parallel()

	require.NoError(t, migrateLike(func() {}))
}
