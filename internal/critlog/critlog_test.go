package critlog_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/latticebuild/critpath/internal/critlog"
)

func TestLoggerInfoWritesHotPathLine(t *testing.T) {
	var buf bytes.Buffer
	logger := critlog.New(nil, &buf)

	logger.Info("receiver loop started")

	assert.Contains(t, buf.String(), "I!")
	assert.Contains(t, buf.String(), "receiver loop started")
}

func TestLoggerWarnWritesHotPathLine(t *testing.T) {
	var buf bytes.Buffer
	logger := critlog.New(nil, &buf)

	logger.Warn("BUCK2_USE_LONGEST_PATH_GRAPH not a recognized boolean")

	assert.Contains(t, buf.String(), "W!")
	assert.Contains(t, buf.String(), "BUCK2_USE_LONGEST_PATH_GRAPH")
}

func TestLoggerErrorWritesHotPathLineWithErr(t *testing.T) {
	var buf bytes.Buffer
	logger := critlog.New(nil, &buf)

	logger.Error("backend finish failed", assert.AnError)

	assert.Contains(t, buf.String(), "E!")
	assert.True(t, strings.Contains(buf.String(), assert.AnError.Error()))
}

func TestLoggerStructuredEmitsFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := critlog.New(zap.New(core), nil)

	logger.Structured().Info("selected critical-path backend", zap.String("backend", "default"))

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		entry := entries[0]
		assert.Equal(t, "selected critical-path backend", entry.Message)
		assert.Equal(t, "default", entry.ContextMap()["backend"])
	}
}

func TestNewWithNilArgsProducesNoopLoggers(t *testing.T) {
	logger := critlog.New(nil, nil)
	assert.NotPanics(t, func() {
		logger.Info("noop")
		logger.Warn("noop")
		logger.Error("noop", assert.AnError)
		logger.Structured().Info("noop")
	})
}
