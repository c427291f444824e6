package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitWriter_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "biblioflow", "production", "info")

	logger.Debug().Msg("hidden")
	logger.Info().Str("book_id", "b1").Msg("book published")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"service":"biblioflow"`)
	assert.Contains(t, out, `"book_id":"b1"`)
	assert.Equal(t, logger, Get())
}

func TestInitWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := InitWriter(&buf, "biblioflow", "production", "loud")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
