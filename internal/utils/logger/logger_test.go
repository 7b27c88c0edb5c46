package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel(""))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestSetLevelFiltersLowerLevels(t *testing.T) {
	previous := Level(minLevel.Load())
	t.Cleanup(func() { SetLevel(previous) })

	SetLevel(LevelWarn)
	assert.False(t, enabled(LevelInfo))
	assert.True(t, enabled(LevelWarn))
	assert.True(t, enabled(LevelError))
}

func TestErrorReturnsCause(t *testing.T) {
	cause := errors.New("boom")
	err := New("TEST").Error("operation failed", cause)
	assert.ErrorIs(t, err, cause)
}
