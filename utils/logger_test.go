package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Logger harus siap pakai dari import saja, tanpa tergantung init di main.
func TestLoggersReadyOnImport(t *testing.T) {
	assert.NotNil(t, InfoLogger)
	assert.NotNil(t, ErrorLogger)

	var buf bytes.Buffer
	ErrorLogger.SetOutput(&buf)
	defer InitLogger()

	ErrorLogger.Printf("snapshot write failed: %v", assert.AnError)
	assert.Contains(t, buf.String(), "snapshot write failed")
}
