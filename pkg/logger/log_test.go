package logger_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avtoolkit/clipforge/pkg/logger"
)

func Test_ParseStatus(t *testing.T) {
	tests := []struct {
		name     string
		expected logger.LogStatus
	}{
		{"verbose", logger.VERBOSE},
		{"debug", logger.DEBUG},
		{"info", logger.INFO},
		{"warn", logger.WARNING},
		{"warning", logger.WARNING},
		{"error", logger.ERROR},
		{" ERROR ", logger.ERROR},
		{"chatty", logger.INFO},
		{"", logger.INFO},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, logger.ParseStatus(tt.name), "level name %q", tt.name)
	}
}

func Test_SinkReceivesMessages(t *testing.T) {
	var sink strings.Builder
	logger.AttachSink(&sink)

	log := logger.Get("TestLogger")
	log.Emit(logger.INFO, "hello %s\n", "world")

	out := sink.String()
	assert.Contains(t, out, "[TestLogger]")
	assert.Contains(t, out, "hello world")
}

func Test_MinLevelFilters(t *testing.T) {
	var sink strings.Builder
	logger.AttachSink(&sink)

	logger.SetMinLoggingLevel(logger.ERROR)
	defer logger.SetMinLoggingLevel(logger.INFO)

	logger.Get("TestLogger").Emit(logger.INFO, "quiet\n")
	assert.NotContains(t, sink.String(), "quiet")

	logger.Get("TestLogger").Emit(logger.ERROR, "loud\n")
	assert.Contains(t, sink.String(), "loud")
}
