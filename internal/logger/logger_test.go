package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	cases := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"not-an-email":         "***@***",
	}
	for in, want := range cases {
		assert.Equal(t, want, RedactEmail(in), in)
	}
}

func TestFromContext(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))

	l := Noop()
	ctx := NewContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
}

func TestConvertLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, convertLevel(DEBUG))
	assert.Equal(t, slog.LevelWarn, convertLevel(WARN))
	assert.Equal(t, slog.LevelError, convertLevel(ERROR))
	assert.Equal(t, slog.LevelInfo, convertLevel("verbose"))
}

func TestWithErr(t *testing.T) {
	ctx := NewContext(context.Background(), Noop())
	assert.NotNil(t, WithErr(ctx, errors.New("boom")))
}
