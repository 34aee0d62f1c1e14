package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
	"golang.org/x/term"

	"go.viam.com/pulsemonitor/components/board"
	"go.viam.com/pulsemonitor/components/board/fake"
	_ "go.viam.com/pulsemonitor/components/board/register"
	"go.viam.com/pulsemonitor/components/pulsemonitor"
	"go.viam.com/pulsemonitor/config"
	"go.viam.com/pulsemonitor/logging"
)

var commandUsage = map[string]string{
	"start": "start counting pulses on the monitored pin",
	"stop":  "stop counting",
	"read":  "read a pin once: read [pin]",
	"reset": "reset the pulse count",
	"count": "print the pulse count",
	"help":  "list commands",
	"quit":  "close the board and exit",
}

// newLogger returns the command's logger and a func that closes its log file, if any.
func newLogger(c *cli.Context) (logging.Logger, func() error) {
	logger := logging.NewBlankLogger("pulsemon")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	closeLog := func() error { return nil }
	if path := c.String(flagLogFile); path != "" {
		file := logging.NewFileAppender(path)
		logger.AddAppender(file)
		closeLog = file.Close
	}
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	return logger, closeLog
}

// loadConfig reads the config flag. With --simulate and no config file, a fake board is used.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.String(flagConfig)
	if path == "" {
		if c.Duration(flagSimulate) <= 0 {
			return nil, errors.New("a --config file is required unless --simulate is set")
		}
		return &config.Config{Board: board.Config{Model: fake.Model}}, nil
	}
	cfg, err := config.Read(c.Context, path, logger)
	if err != nil {
		return nil, err
	}
	config.UpdateFileConfigLevel(cfg.Level())
	return cfg, nil
}

// watchConfig applies log level changes from the config file until the returned func is called.
func watchConfig(ctx context.Context, current *config.Config, logger logging.Logger) (func() error, error) {
	watcher, err := config.NewWatcher(ctx, current.ConfigFilePath, logger)
	if err != nil {
		return nil, err
	}
	workers := goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg := <-watcher.Config():
				config.UpdateFileConfigLevel(cfg.Level())
				if !reflect.DeepEqual(cfg.Board, current.Board) || !reflect.DeepEqual(cfg.Monitor, current.Monitor) {
					logger.Warn("board and monitor changes take effect on restart")
				}
			}
		}
	})
	return func() error {
		workers.Stop()
		return watcher.Close()
	}, nil
}

// tally counts printed events by kind and keeps the time of each pulse.
type tally struct {
	mu     sync.Mutex
	counts map[pulsemonitor.EventKind]int
	pulses []time.Time
}

func (t *tally) add(ev pulsemonitor.StatusEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[ev.Kind]++
	if ev.Kind == pulsemonitor.KindPulse {
		t.pulses = append(t.pulses, ev.Time)
	}
}

// meanInterval returns the mean time between consecutive pulses, or "-" with fewer than two.
func (t *tally) meanInterval() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.pulses) < 2 {
		return "-"
	}
	intervals := make(stats.Float64Data, 0, len(t.pulses)-1)
	for i := 1; i < len(t.pulses); i++ {
		intervals = append(intervals, float64(t.pulses[i].Sub(t.pulses[i-1])))
	}
	mean, err := stats.Mean(intervals)
	if err != nil {
		return "-"
	}
	return time.Duration(mean).Round(time.Millisecond).String()
}

func (t *tally) failures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.Sum(lo.MapToSlice(t.counts, func(kind pulsemonitor.EventKind, n int) int {
		return lo.Ternary(kind.IsFailure(), n, 0)
	}))
}

func runAction(c *cli.Context) (err error) {
	ctx := c.Context
	logger, closeLog := newLogger(c)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}

	session := uuid.NewString()
	logger.Infow("session started", "session", session, "board", cfg.Board.Model)

	if c.Bool(flagWatch) && cfg.ConfigFilePath != "" {
		stopWatching, err := watchConfig(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, stopWatching())
		}()
	}

	if err := pulsemonitor.RegisterViews(); err != nil {
		return err
	}
	defer pulsemonitor.UnregisterViews()

	dio, err := board.NewFromConfig(ctx, cfg.Board, logger.Sublogger("board"))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, dio.Close(context.Background()))
	}()

	if interval := c.Duration(flagSimulate); interval > 0 {
		simulator, ok := dio.(*fake.DigitalIO)
		if !ok {
			return errors.Errorf("--simulate needs the %q board, not %q", fake.Model, cfg.Board.Model)
		}
		simulator.StartSimulation(interval)
	}

	monitor, err := pulsemonitor.New(ctx, board.NewChannel(dio), cfg.Monitor, logger.Sublogger("monitor"))
	var initErr *pulsemonitor.InitFailure
	if err != nil && !errors.As(err, &initErr) {
		return err
	}

	out := newDisplay(c.App.Writer)
	events := &tally{counts: map[pulsemonitor.EventKind]int{}}
	printed := make(chan struct{})
	sub := monitor.Subscribe()
	goutils.PanicCapturingGo(func() {
		defer close(printed)
		for ev := range sub.Events() {
			events.add(ev)
			out.event(ev)
		}
	})

	started := time.Now()
	commandLoop(ctx, c.App.Reader, isTerminal(c.App.Reader), monitor, out)

	goutils.UncheckedError(monitor.Close(context.Background()))
	<-printed

	summary := table.NewWriter()
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Session", "Board", "Pin", "Pulses", "Mean interval", "Failures", "Ran for"})
	summary.AppendRow(table.Row{
		session,
		cfg.Board.Model,
		monitoredPin(cfg),
		monitor.PulseCount(),
		events.meanInterval(),
		events.failures(),
		units.HumanDuration(time.Since(started)),
	})
	out.printf("%s", summary.Render())
	out.printf("total pulses: %d", monitor.PulseCount())
	return nil
}

func monitoredPin(cfg *config.Config) board.Pin {
	return board.Pin(lo.Ternary(cfg.Monitor.Pin == 0, int(board.Pin1), cfg.Monitor.Pin))
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// commandLoop executes commands from in until quit, end of input or ctx is done. An interactive
// loop prompts before each command.
func commandLoop(ctx context.Context, in io.Reader, interactive bool, monitor *pulsemonitor.Monitor, out *display) {
	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	goutils.PanicCapturingGo(func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	})

	for {
		if interactive {
			out.prompt()
		}
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := execute(ctx, line, monitor, out); quit {
				return
			}
		}
	}
}

// execute runs one command line and reports whether it asked to quit.
func execute(ctx context.Context, line string, monitor *pulsemonitor.Monitor, out *display) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "start":
		monitor.Start(ctx)
	case "stop":
		monitor.Stop(ctx)
	case "read":
		pin := board.Pin1
		if len(fields) > 1 {
			n, err := cast.ToIntE(fields[1])
			if err != nil || !lo.Contains(board.KnownPins, board.Pin(n)) {
				out.printf("unknown pin %q; pins are %v", fields[1], board.KnownPins)
				return false
			}
			pin = board.Pin(n)
		}
		monitor.ReadInput(ctx, pin)
	case "reset":
		monitor.ResetPulseCount()
	case "count":
		out.printf("pulses: %d (%s)", monitor.PulseCount(), monitor.State())
	case "quit", "exit":
		return true
	case "help":
		printHelp(out)
	default:
		out.printf("unknown command %q, try help", fields[0])
	}
	return false
}

func printHelp(out *display) {
	names := lo.Keys(commandUsage)
	sort.Strings(names)
	help := table.NewWriter()
	help.SetStyle(table.StyleLight)
	help.AppendHeader(table.Row{"Command", "Description"})
	for _, name := range names {
		help.AppendRow(table.Row{name, commandUsage[name]})
	}
	out.printf("%s", help.Render())
}

func validateAction(c *cli.Context) (err error) {
	logger, closeLog := newLogger(c)
	defer func() {
		err = multierr.Combine(err, closeLog())
	}()
	start := time.Now()
	cfg, err := config.Read(c.Context, c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	logger.Debugw("config validated", "duration", time.Since(start))
	newDisplay(c.App.Writer).printf("%s is valid: %s board, monitoring %s",
		cfg.ConfigFilePath, cfg.Board.Model, monitoredPin(cfg))
	return nil
}
