package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nomis52/neongrid/config"
	"github.com/nomis52/neongrid/engine"
	"github.com/nomis52/neongrid/input"
	"github.com/nomis52/neongrid/logging"
	"github.com/nomis52/neongrid/metrics"
)

const pushTimeout = 10 * time.Second

type runOptions struct {
	configPath  string
	inputFile   string
	text        string
	max         int
	interval    time.Duration
	probability float64
	seed        uint64
	templates   []string
	pushURL     string
	logLevel    string
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run <kind>",
	Short: "Run one operation over a list of items",
	Long: `Run one operation over a list of items and print every outcome.

Items are read from --input or --text, one per line. Blank lines are ignored.
Press Ctrl-C to stop early; the summary is still printed.`,
	Example: `  neongrid run follow --input users.txt
  neongrid run like --text "#go" --interval 2s --probability 0.5
  neongrid run comment --input posts.txt --template "nice shot" --max 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOperation(cmd, args[0], runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.configPath, "config", "c", "", "config file with operation overrides")
	f.StringVarP(&runOpts.inputFile, "input", "i", "", "file with one item per line")
	f.StringVarP(&runOpts.text, "text", "t", "", "items, one per line")
	f.IntVar(&runOpts.max, "max", 0, "maximum number of items to process (0 = all)")
	f.DurationVar(&runOpts.interval, "interval", 0, "time between items")
	f.Float64Var(&runOpts.probability, "probability", 0, "success probability in [0,1]")
	f.Uint64Var(&runOpts.seed, "seed", 0, "seed for reproducible outcomes")
	f.StringArrayVar(&runOpts.templates, "template", nil, "comment template (repeatable)")
	f.StringVar(&runOpts.pushURL, "push-url", "", "Prometheus remote write URL for run metrics")
	f.StringVar(&runOpts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	runCmd.MarkFlagsMutuallyExclusive("input", "text")

	rootCmd.AddCommand(runCmd)
}

func runOperation(cmd *cobra.Command, kindName string, opts runOptions) error {
	kind, err := engine.ParseKind(kindName)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}

	items, err := readItems(opts)
	if err != nil {
		return err
	}

	job := engine.Job{
		Kind:      kind,
		Input:     items,
		Config:    cfg.JobConfig(kind),
		Templates: cfg.Templates(kind),
	}
	flags := cmd.Flags()
	if flags.Changed("max") {
		job.Config.MaxItems = opts.max
	}
	if flags.Changed("interval") {
		job.Config.StepInterval = opts.interval
	}
	if flags.Changed("probability") {
		job.Config.SuccessProbability = opts.probability
	}
	if len(opts.templates) > 0 {
		job.Templates = opts.templates
	}

	logger, err := logging.New(logging.Config{Level: opts.logLevel, Format: "text", Output: "stderr"})
	if err != nil {
		return err
	}
	defer logger.Close()

	out := newPrinter(cmd.OutOrStdout(), useColor(os.Stdout))
	sinks := engine.MultiSink{out}

	var push *metrics.PushRegistry
	if opts.pushURL != "" {
		hostname, _ := os.Hostname()
		push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      opts.pushURL,
			Prefix:   cfg.Monitoring.MetricsPrefix,
			Job:      cfg.Monitoring.JobName,
			Instance: hostname,
		})
		m, err := metrics.NewOperationMetrics(push)
		if err != nil {
			return err
		}
		m.Started(kind)
		sinks = append(sinks, m)
	}

	engineOpts := []engine.Option{engine.WithSink(sinks)}
	if flags.Changed("seed") {
		engineOpts = append(engineOpts, engine.WithSeed(opts.seed))
	}
	eng := engine.New(logger.Logger, engineOpts...)

	run, err := eng.Start(job)
	if err != nil {
		if errors.Is(err, engine.ErrEmptyInput) {
			out.Notify(engine.Notification{Level: engine.LevelWarning, Message: "No items to process"})
		}
		return err
	}
	out.Notify(engine.Notification{
		Level:   engine.LevelInfo,
		Message: fmt.Sprintf("%s: %d items, one every %s", kind, run.Snapshot().Limit, job.Config.StepInterval),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-run.Done():
	case <-ctx.Done():
		eng.Cancel()
		<-run.Done()
	}

	if push != nil {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := push.Flush(pushCtx); err != nil {
			return fmt.Errorf("pushing metrics: %w", err)
		}
	}
	return nil
}

func readItems(opts runOptions) ([]string, error) {
	switch {
	case opts.inputFile == "-":
		return input.Read(os.Stdin)
	case opts.inputFile != "":
		return input.ReadFile(opts.inputFile)
	case opts.text != "":
		return input.Lines(opts.text), nil
	default:
		return nil, errors.New("one of --input or --text is required")
	}
}
