package logging_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
)

// TestNew verifies level and format selection.
//
// WHY: log output is the only view operators have into a loader run, so a
// misconfigured LOG_LEVEL must not silence it.
func TestNew(t *testing.T) {
	t.Run("unknown level falls back to info", func(t *testing.T) {
		logger := logging.NewWithOutput(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{})
		if logger.GetLevel() != logrus.InfoLevel {
			t.Errorf("expected info level, got %s", logger.GetLevel())
		}
	})

	t.Run("debug level is honoured", func(t *testing.T) {
		logger := logging.NewWithOutput(config.LoggingConfig{Level: "DEBUG"}, &bytes.Buffer{})
		if logger.GetLevel() != logrus.DebugLevel {
			t.Errorf("expected debug level, got %s", logger.GetLevel())
		}
	})

	t.Run("json format writes structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithOutput(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

		logger.WithField("ticker", "MDIZX").Info("persisted")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
		}
		if entry["ticker"] != "MDIZX" {
			t.Errorf("expected ticker field MDIZX, got %v", entry["ticker"])
		}
	})

	t.Run("text format is the default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logging.NewWithOutput(config.LoggingConfig{}, &buf)

		logger.Info("hello")

		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("expected text formatter output, got %q", buf.String())
		}
	})
}
