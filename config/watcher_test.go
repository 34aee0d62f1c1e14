package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/pulsemonitor/logging"
)

func TestWatcher(t *testing.T) {
	path := writeConfig(t, `{"board": {"model": "fake"}}`)
	w, err := newWatcher(path, 10*time.Millisecond, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// an unrelated file in the same directory is ignored
	other := filepath.Join(filepath.Dir(path), "other.json")
	test.That(t, os.WriteFile(other, []byte("{}"), 0o600), test.ShouldBeNil)

	// an invalid edit is skipped
	test.That(t, os.WriteFile(path, []byte(`{"board": {"model": "fake"}, "log_level": "loud"}`), 0o600),
		test.ShouldBeNil)
	select {
	case cfg := <-w.Config():
		t.Fatalf("unexpected config %+v", cfg)
	case <-time.After(100 * time.Millisecond):
	}

	test.That(t, os.WriteFile(path, []byte(`{"board": {"model": "fake"}, "log_level": "warn"}`), 0o600),
		test.ShouldBeNil)
	select {
	case cfg := <-w.Config():
		test.That(t, cfg.Level(), test.ShouldEqual, logging.WARN)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change")
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(context.Background(), filepath.Join(t.TempDir(), "nope", "pulsemon.json"),
		logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
