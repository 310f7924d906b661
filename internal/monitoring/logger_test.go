package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLogger(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("checksum mismatch on attempt %d", 2)
	assert.Equal(t, "checksum mismatch on attempt 2", got)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("muted %d", 1) })
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"info":    zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestOrNop(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	assert.NotNil(t, OrNop(nil))
	l := New(DebugLevel)
	assert.Same(t, l, OrNop(l))
}
