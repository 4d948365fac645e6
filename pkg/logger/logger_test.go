package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithSessionID(ctx, "session-9")

	log.Error(ctx, "boom", errors.New("boom"))

	entry := buf.String()
	require.Contains(t, entry, `"request_id"`)
	require.Contains(t, entry, `"audit_session_id"`)
	require.Contains(t, entry, `"service":"test"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	withStack := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: withStack, WarnStack: true})
	log.Warn(context.Background(), "warny")
	require.Contains(t, withStack.String(), `"stack"`)

	withoutStack := &bytes.Buffer{}
	log = New(Options{ServiceName: "test", Output: withoutStack})
	log.Warn(context.Background(), "warny")
	require.NotContains(t, withoutStack.String(), `"stack"`)
}

func TestParseLevelDefaults(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}
