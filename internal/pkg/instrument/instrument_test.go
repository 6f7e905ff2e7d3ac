package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, cfg *Config) *slog.Logger {
	return slog.New(newHandler(buf, cfg, nil))
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestHandler_MasksFields(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, &Config{ServiceName: "passgate", MaskFields: []string{" OTP ", "code", ""}})

	log.Info("issued",
		"otp", "482913",
		"session", "abc",
		"body", `{"email":"a@b.test","otp":"123456"}`,
		slog.Group("req", slog.String("Code", "000111")),
		"payload", map[string]string{"code": "9"},
	)

	got := decode(t, &buf)
	assert.Equal(t, "***", got["otp"])
	assert.Equal(t, "abc", got["session"])
	assert.JSONEq(t, `{"email":"a@b.test","otp":"***"}`, got["body"].(string))
	assert.Equal(t, map[string]any{"Code": "***"}, got["req"])
	assert.Equal(t, map[string]any{"code": "***"}, got["payload"])
	assert.Equal(t, "passgate", got["service"])
	assert.Contains(t, got, "ts")
	assert.Contains(t, got, "severity")
}

func TestHandler_MasksWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, &Config{MaskFields: []string{"otp"}}).With("otp", "111111")

	log.Info("x")

	assert.Equal(t, "***", decode(t, &buf)["otp"])
}

func TestHandler_CorrelationID(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, &Config{})

	ctx := SetCorrelationID(context.Background(), "cid-1")
	log.InfoContext(ctx, "hello")

	got := decode(t, &buf)
	assert.Equal(t, "cid-1", got["_cID"])
	assert.NotContains(t, got, "service")
}

func TestHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := newTestLogger(&buf, &Config{LogLevel: "warn"})

	log.Info("dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.Equal(t, "WARN", decode(t, &buf)["severity"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel(" ERROR "))
	assert.Equal(t, slog.LevelInfo, parseLevel("nope"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
	assert.Equal(t, "x", GetCorrelationID(SetCorrelationID(context.Background(), "x")))
}

func TestNewDisabled(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ins, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	_, span := ins.Tracer("test").Start(context.Background(), "op")
	span.End()
	assert.NoError(t, ins.Shutdown(context.Background()))
}
