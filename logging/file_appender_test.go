package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulsemon.log")
	appender := NewFileAppender(path)

	logger := NewBlankLogger("pulsemon")
	logger.AddAppender(appender)
	logger.Infow("monitoring started", "pin", 1)
	logger.Debug("debug line")
	test.That(t, appender.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(string(contents)), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldContainSubstring, "INFO")
	test.That(t, lines[0], test.ShouldContainSubstring, "monitoring started")
	test.That(t, lines[0], test.ShouldContainSubstring, `{"pin":1}`)
	test.That(t, lines[1], test.ShouldContainSubstring, "debug line")
}
