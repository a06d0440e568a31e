package logger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vytor/studyflash/internal/logger"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logger.DEBUG, logger.ParseLevel("debug"))
	assert.Equal(t, logger.WARN, logger.ParseLevel("WARNING"))
	assert.Equal(t, logger.ERROR, logger.ParseLevel(" error "))
	assert.Equal(t, logger.INFO, logger.ParseLevel("bogus"))
}

func TestIsValidLevel(t *testing.T) {
	assert.True(t, logger.IsValidLevel("info"))
	assert.False(t, logger.IsValidLevel(""))
	assert.False(t, logger.IsValidLevel("TRACE"))
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.WARN))

	log.Info("hidden")
	log.Warn("shown %d", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 1")
}

func TestLogger_FieldsAreSortedAndInherited(t *testing.T) {
	var buf bytes.Buffer
	base := logger.New(logger.WithOutput(&buf), logger.WithLevel(logger.DEBUG))
	log := base.WithPrefix("quiz").WithField("zeta", 1).WithFields(map[string]any{"alpha": "a"})

	log.WithError(errors.New("boom")).Debug("step")

	out := buf.String()
	assert.Contains(t, out, "[quiz]")
	assert.Contains(t, out, "step alpha=a error=boom zeta=1")
}

func TestContextRoundTrip(t *testing.T) {
	log := logger.Discard().WithPrefix("ctx")
	ctx := logger.NewContext(context.Background(), log)

	assert.Same(t, log, logger.FromContext(ctx))
	assert.Same(t, logger.Default(), logger.FromContext(context.Background()))
}
