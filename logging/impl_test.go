package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.viam.com/test"
)

func newBufferedLogger(name string, level Level) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := &impl{name, NewAtomicLevelAt(level), true, []Appender{NewWriterAppender(buf)}}
	return logger, buf
}

func readLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutputFormat(t *testing.T) {
	logger, buf := newBufferedLogger("pulse", INFO)

	logger.Info("pin armed")
	parts := readLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2006-01-02T15:04:05.000Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "pulse")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "pin armed")

	logger.Warnf("pin %d read failed", 1)
	parts = readLine(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[4], test.ShouldEqual, "pin 1 read failed")

	logger.Errorw("unregister failed", "pin", 1, "error", "busy")
	parts = readLine(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[5], test.ShouldEqual, `{"pin":1,"error":"busy"}`)

	logger.Infow("unpaired", "pin")
	parts = readLine(t, buf)
	test.That(t, parts[5], test.ShouldContainSubstring, "unpaired log key")
}

func TestLevels(t *testing.T) {
	logger, buf := newBufferedLogger("", WARN)

	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warn("shown")
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown")

	buf.Reset()
	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debugw("now shown", "k", "v")
	test.That(t, buf.String(), test.ShouldContainSubstring, "now shown")
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferedLogger("pulsemon", INFO)
	sub := logger.Sublogger("monitor")
	sub.SetLevel(ERROR)

	sub.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)

	sub.Error("shown")
	parts := readLine(t, buf)
	test.That(t, parts[2], test.ShouldEqual, "pulsemon.monitor")
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.out)
		test.That(t, level.AsZap().String(), test.ShouldEqual, tc.out.String())
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Debugw("callback ignored", "pin", 2)
	logger.Info("plain")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entry := logs.FilterMessage("callback ignored").All()[0]
	test.That(t, entry.ContextMap()["pin"], test.ShouldEqual, int64(2))
}
