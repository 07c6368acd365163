package log

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Покрытие:
//   - From без логгера в контексте -> slog.Default();
//   - Into/From round-trip, устойчивость к мусорным значениям;
//   - With добавляет атрибуты, не трогая родительский контекст;
//   - Into не меняет отмену и дедлайн.
//
// Тесты меняют slog.Default(), поэтому не используют t.Parallel().

func newSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// attrHandler запоминает атрибуты, пришедшие через Logger.With.
type attrHandler struct {
	attrs []slog.Attr
}

func (h *attrHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *attrHandler) Handle(context.Context, slog.Record) error { return nil }
func (h *attrHandler) WithGroup(string) slog.Handler             { return h }
func (h *attrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &attrHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func TestFrom_ReturnsDefault_WhenNoLoggerInContext(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	def := newSilent()
	slog.SetDefault(def)

	require.Equal(t, def, From(context.Background()))
}

func TestIntoAndFrom_RoundTrip(t *testing.T) {
	l := newSilent()
	ctx := Into(context.Background(), l)

	require.Equal(t, l, From(ctx))
}

func TestFrom_ReturnsDefault_WhenStoredValueIsWrongTypeOrNil(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })
	def := newSilent()
	slog.SetDefault(def)

	ctxWrong := context.WithValue(context.Background(), ctxKey{}, "not-a-logger")
	require.Equal(t, def, From(ctxWrong))

	var nilLogger *slog.Logger
	ctxNil := context.WithValue(context.Background(), ctxKey{}, nilLogger)
	require.Equal(t, def, From(ctxNil))
}

func TestWith_AddsAttrs_ParentUntouched(t *testing.T) {
	h := &attrHandler{}
	base := slog.New(h)
	parent := Into(context.Background(), base)

	child := With(parent, "user_id", int64(7))

	require.Equal(t, base, From(parent))

	ch, ok := From(child).Handler().(*attrHandler)
	require.True(t, ok)
	require.Len(t, ch.attrs, 1)
	require.Equal(t, "user_id", ch.attrs[0].Key)
	require.EqualValues(t, 7, ch.attrs[0].Value.Int64())
}

func TestWith_NoArgs_ReturnsSameContext(t *testing.T) {
	ctx := Into(context.Background(), newSilent())
	require.Equal(t, ctx, With(ctx))
}

func TestInto_PreservesCancellationAndDeadline(t *testing.T) {
	parentDL, cancelDL := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancelDL()

	child := Into(parentDL, newSilent())

	cdl, ok := child.Deadline()
	require.True(t, ok)
	pdl, _ := parentDL.Deadline()
	require.WithinDuration(t, pdl, cdl, time.Millisecond)

	select {
	case <-child.Done():
		require.ErrorIs(t, child.Err(), context.DeadlineExceeded)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Ожидали дедлайн у дочернего контекста")
	}
}
