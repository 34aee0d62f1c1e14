package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/pulsemonitor/components/board"
	_ "go.viam.com/pulsemonitor/components/board/register"
	"go.viam.com/pulsemonitor/logging"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pulsemon.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	t.Setenv("PULSEMON_TEST_CHIP", "gpiochip3")

	path := writeConfig(t, `{
		// the counted input is wired to line 17
		board: {
			model: "genericlinux",
			attributes: {gpio_chip_dev: "${PULSEMON_TEST_CHIP}", pins: {"1": 17, "2": 27, "3": 22}},
		},
		monitor: {pin: 1, active_level: 0, pending_events: 4},
		log_level: "debug",
	}`)
	cfg, err := Read(ctx, path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	test.That(t, cfg.Board.Model, test.ShouldEqual, "genericlinux")
	test.That(t, cfg.Board.Attributes["gpio_chip_dev"], test.ShouldEqual, "gpiochip3")
	test.That(t, cfg.Monitor.Pin, test.ShouldEqual, 1)
	test.That(t, *cfg.Monitor.ActiveLevel, test.ShouldEqual, board.Low)
	test.That(t, cfg.Monitor.PendingEvents, test.ShouldEqual, 4)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.DEBUG)
}

func TestReadDefaults(t *testing.T) {
	cfg, err := FromReader(context.Background(), "", strings.NewReader(`{"board": {"model": "fake"}}`),
		logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Monitor.Pin, test.ShouldEqual, 0)
	test.That(t, cfg.Monitor.ActiveLevel, test.ShouldBeNil)
	test.That(t, cfg.Level(), test.ShouldEqual, logging.INFO)
}

func TestReadErrors(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)

	_, err := Read(ctx, filepath.Join(t.TempDir(), "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)

	for _, tc := range []struct {
		name     string
		contents string
		contains string
	}{
		{"syntax", `{"board": `, "failed to decode Config from json"},
		{"no board", `{"monitor": {"pin": 1}}`, ErrNoBoard.Error()},
		{"no model", `{"board": {"attributes": {"values": {}}}}`, `"model" is required`},
		{"unknown model", `{"board": {"model": "abacus"}}`, `unknown board model "abacus"`},
		{"bad attributes", `{"board": {"model": "fake", "attributes": {"values": {"1": 3}}}}`, "board.attributes"},
		{"bad pin", `{"board": {"model": "fake"}, "monitor": {"pin": 9}}`, "unknown pin 9"},
		{"bad level", `{"board": {"model": "fake"}, "log_level": "loud"}`, `unknown log level: "loud"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader(ctx, "", strings.NewReader(tc.contents), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestLoggingSettings(t *testing.T) {
	logger := logging.NewBlankLogger("pulsemon")

	InitLoggingSettings(logger, false)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.INFO)
	UpdateFileConfigLevel(logging.WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)

	InitLoggingSettings(logger, true)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
	UpdateFileConfigLevel(logging.ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.DEBUG)
}
