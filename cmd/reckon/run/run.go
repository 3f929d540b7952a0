// Package runcmder provides the run command: it builds a memory from the
// resolved configuration, feeds it JSONL input and drives it frame by frame.
package runcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/reckon/api"
	"github.com/papercomputeco/reckon/pkg/cliui"
	"github.com/papercomputeco/reckon/pkg/config"
	"github.com/papercomputeco/reckon/pkg/dotdir"
	"github.com/papercomputeco/reckon/pkg/events"
	"github.com/papercomputeco/reckon/pkg/input"
	"github.com/papercomputeco/reckon/pkg/journal"
	"github.com/papercomputeco/reckon/pkg/logger"
	"github.com/papercomputeco/reckon/pkg/memory"
	"github.com/papercomputeco/reckon/pkg/runner"
	"github.com/papercomputeco/reckon/pkg/sense"
)

const runLongDesc string = `Run the reasoning memory over JSONL input.

Each input line is one JSON record: a sentence or a command.
  {"term":"bird","punctuation":".","frequency":1,"confidence":0.9}
  {"term":{"op":"-->","args":["robin","bird"]},"punctuation":"?"}
  {"command":"volume","volume":50}

Input is read from the files given as arguments, or from stdin when it is
not a terminal. Use "-" to read stdin explicitly. Tasks loud enough for the
current volume are written to stdout in the same format; logs go to stderr.

Without --frames the run stops once the input has been consumed, unless
--serve keeps it alive for the API. Interrupt to stop early.

Examples:
  reckon run facts.jsonl
  cat facts.jsonl | reckon run --frames 100
  reckon run --serve --journal sqlite facts.jsonl`

const runShortDesc string = "Run the memory over JSONL input"

const (
	// idlePoll is how often a finite run checks whether its input is drained.
	idlePoll = 20 * time.Millisecond

	// feedGrace bounds the wait for the input goroutine after the run ends.
	// A read blocked on an open stdin cannot be interrupted.
	feedGrace = time.Second
)

var runFlags = []string{
	config.FlagAPIListen,
	config.FlagServe,
	config.FlagJournal,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagPublisher,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagCyclesPerFrame,
	config.FlagFrameInterval,
	config.FlagVolume,
	config.FlagThreads,
	config.FlagTiming,
}

type runCommander struct {
	flags struct {
		listen         string
		serve          bool
		journal        string
		sqlite         string
		postgresDSN    string
		publisher      string
		brokers        string
		topic          string
		cyclesPerFrame uint
		frameInterval  string
		volume         uint
		threads        uint
		timing         string
	}

	frames    int
	debug     bool
	configDir string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	viper  *viper.Viper
	logger *zap.Logger
}

func NewRunCmd() *cobra.Command {
	cmder := &runCommander{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	cmd := &cobra.Command{
		Use:   "run [file ...]",
		Short: runShortDesc,
		Long:  runLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, runFlags)
			cmder.viper = v
			cmder.configDir = configDir
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.stdout = cmd.OutOrStdout()
			cmder.stderr = cmd.ErrOrStderr()
			cmder.stdin = cmd.InOrStdin()

			cfg, err := config.FromViper(cmder.viper)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmder.run(ctx, cfg, args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.flags.listen)
	config.AddBoolFlag(cmd, config.Flags, config.FlagServe, &cmder.flags.serve)
	config.AddStringFlag(cmd, config.Flags, config.FlagJournal, &cmder.flags.journal)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.flags.sqlite)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.flags.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagPublisher, &cmder.flags.publisher)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.flags.brokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.flags.topic)
	config.AddUintFlag(cmd, config.Flags, config.FlagCyclesPerFrame, &cmder.flags.cyclesPerFrame)
	config.AddStringFlag(cmd, config.Flags, config.FlagFrameInterval, &cmder.flags.frameInterval)
	config.AddUintFlag(cmd, config.Flags, config.FlagVolume, &cmder.flags.volume)
	config.AddUintFlag(cmd, config.Flags, config.FlagThreads, &cmder.flags.threads)
	config.AddStringFlag(cmd, config.Flags, config.FlagTiming, &cmder.flags.timing)
	cmd.Flags().IntVarP(&cmder.frames, "frames", "n", 0, "Number of frames to run (0 runs until the input is consumed)")

	return cmd
}

func (c *runCommander) run(ctx context.Context, cfg *config.Config, args []string) error {
	c.logger = logger.NewLoggerWithWriters(c.debug, c.stderr)
	defer func() { _ = c.logger.Sync() }()

	sources, err := c.inputSources(args)
	if err != nil {
		return err
	}
	if len(sources) == 0 && c.frames == 0 && !cfg.API.Enabled {
		return errors.New("nothing to run: pass JSONL files, pipe stdin, set --frames or --serve")
	}

	params, err := cfg.Params()
	if err != nil {
		return err
	}
	interval, err := cfg.FrameInterval()
	if err != nil {
		return err
	}

	state := &dotdir.RunState{StartedAt: time.Now().UTC()}

	bus := events.NewEmitter(events.WithLogger(c.logger))
	mem, err := memory.New(&memory.Config{
		Params: params,
		Events: bus,
		Logger: c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating memory: %w", err)
	}
	defer mem.Close()

	out, err := newOutputWriter(bus, c.stdout)
	if err != nil {
		return err
	}
	defer out.close()

	metrics, err := sense.New(&sense.Config{
		Emitter: bus,
		Source:  mem,
		Logger:  c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	defer metrics.Close()

	driver, journalTarget, err := c.newJournalDriver(ctx, cfg)
	if err != nil {
		return err
	}
	if driver != nil {
		defer driver.Close()

		recorder, err := journal.NewRecorder(&journal.RecorderConfig{
			Driver:    driver,
			Emitter:   bus,
			QueueSize: uint(cfg.Journal.QueueSize),
			Logger:    c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating journal recorder: %w", err)
		}
		// Runs before driver.Close so queued entries are written.
		defer recorder.Close()
		state.Journal = journalTarget
	}

	bridge, err := c.newBridge(cfg, bus)
	if err != nil {
		return err
	}
	if bridge != nil {
		defer func() {
			if err := bridge.Close(); err != nil {
				c.logger.Warn("closing event stream", zap.Error(err))
			}
		}()
	}

	queue := input.NewQueue(cfg.Runner.InputBuffer)
	r, err := runner.New(&runner.Config{
		Memory:         mem,
		Source:         queue,
		CyclesPerFrame: cfg.Runner.CyclesPerFrame,
		FrameInterval:  interval,
		Logger:         c.logger,
	})
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.API.Enabled {
		apiConfig := api.Config{
			ListenAddr:   cfg.API.Listen,
			Journal:      driver,
			ConceptLimit: cfg.API.ConceptLimit,
		}
		if cfg.API.Metrics {
			apiConfig.Metrics = metrics.Handler()
		}

		broker, live, err := c.newLiveStream(bus)
		if err != nil {
			return err
		}
		defer func() { _ = live.Close() }()
		apiConfig.Events = broker

		server, err := api.NewServer(apiConfig, r, queue, c.logger)
		if err != nil {
			return err
		}
		go func() {
			c.logger.Info("starting API server", zap.String("listen", cfg.API.Listen))
			if err := server.Run(); err != nil {
				c.logger.Error("API server stopped", zap.Error(err))
				cancel()
			}
		}()
		defer func() {
			// Open event streams would hold the shutdown.
			broker.Close()
			if err := server.Shutdown(); err != nil {
				c.logger.Warn("shutting down API server", zap.Error(err))
			}
		}()
	}

	c.watchConfig(runCtx, mem)

	feed := newFeeder(sources, queue, c.logger)
	go feed.run(runCtx)

	if c.frames > 0 {
		err = r.Run(runCtx, c.frames)
	} else {
		if !cfg.API.Enabled {
			go stopWhenDrained(runCtx, feed.done, queue, cancel)
		}
		err = r.Start(runCtx)
		if err == nil && ctx.Err() == nil {
			// Let the last input settle before stopping.
			err = r.Run(ctx, 1)
		}
	}
	cancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	if err := feed.wait(feedGrace); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("reading input", zap.Error(err))
	}

	state.FinishedAt = time.Now().UTC()
	state.Frames = r.Frames()
	state.Cycles = mem.Cycles()
	state.Inputs = int(feed.inputs.Load())
	state.Skipped = int(feed.skipped.Load())
	state.Concepts = mem.Attention().Size()
	state.Outputs = out.count()

	if saveErr := dotdir.NewManager().SaveRunState(state, c.configDir); saveErr != nil {
		c.logger.Warn("saving run state", zap.Error(saveErr))
	}

	fmt.Fprintln(c.stderr)
	cliui.RenderPairs(c.stderr, summary(state)...)
	fmt.Fprintln(c.stderr)

	return err
}

// inputSources opens the input files. With no arguments stdin is used
// unless it is a terminal.
func (c *runCommander) inputSources(args []string) ([]namedReader, error) {
	if len(args) == 0 {
		if w, ok := c.stdin.(io.Writer); ok && logger.IsTerminal(w) {
			return nil, nil
		}
		return []namedReader{{name: "stdin", r: c.stdin}}, nil
	}

	sources := make([]namedReader, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			sources = append(sources, namedReader{name: "stdin", r: c.stdin})
			continue
		}
		f, err := os.Open(filepath.Clean(arg))
		if err != nil {
			for _, s := range sources {
				s.close()
			}
			return nil, fmt.Errorf("opening input: %w", err)
		}
		sources = append(sources, namedReader{name: arg, r: f, closer: f})
	}
	return sources, nil
}

// watchConfig applies volume changes from config.toml while running.
func (c *runCommander) watchConfig(ctx context.Context, mem *memory.Memory) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil || cfger.GetTarget() == "" {
		return
	}

	err = config.Watch(ctx, cfger.GetTarget(), c.logger, func(cfg *config.Config) {
		if cfg.Memory.Volume != mem.Volume() {
			c.logger.Info("volume changed", zap.Int("volume", cfg.Memory.Volume))
			mem.SetVolume(cfg.Memory.Volume)
		}
	})
	if err != nil {
		c.logger.Debug("not watching config", zap.Error(err))
	}
}

// stopWhenDrained cancels the run once the input has been read and the
// queue is empty.
func stopWhenDrained(ctx context.Context, fed <-chan struct{}, q *input.Queue, cancel context.CancelFunc) {
	select {
	case <-ctx.Done():
		return
	case <-fed:
	}

	ticker := time.NewTicker(idlePoll)
	defer ticker.Stop()
	for {
		if q.Pending() == 0 {
			cancel()
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func summary(s *dotdir.RunState) []cliui.Pair {
	return []cliui.Pair{
		cliui.KV("Frames", s.Frames),
		cliui.KV("Cycles", s.Cycles),
		cliui.KV("Inputs", s.Inputs),
		cliui.KV("Skipped", s.Skipped),
		cliui.KV("Concepts", s.Concepts),
		cliui.KV("Outputs", s.Outputs),
		cliui.KV("Journal", s.Journal),
		cliui.KV("Elapsed", cliui.FormatDuration(s.FinishedAt.Sub(s.StartedAt))),
	}
}
