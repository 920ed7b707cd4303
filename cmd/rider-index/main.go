package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1F47E/rider-index/pkg/association"
	"github.com/1F47E/rider-index/pkg/config"
	"github.com/1F47E/rider-index/pkg/frames"
	"github.com/1F47E/rider-index/pkg/logging"
	"github.com/1F47E/rider-index/pkg/pipeline"
	"github.com/1F47E/rider-index/pkg/report"
	"github.com/1F47E/rider-index/pkg/router"
	"github.com/1F47E/rider-index/pkg/store"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:          "rider-index",
	Short:        "Per-frame vehicle routing and motorcycle rider association",
	Long:         `Routes tracked detections into vehicle categories and assigns riders to the motorcycle they are on, frame by frame.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a detection recording",
	Long:  `Replay a recording of detector output (.jsonl or .gob) through routing and rider association.`,
	RunE:  runRun,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [frame.json]",
	Short: "Route and associate a single frame",
	Long:  `Read one frame of detections as JSON from a file or stdin and print the buckets and associations as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark the pipeline on synthetic frames",
	Long:  `Generate synthetic traffic and measure routing and association throughput.`,
	RunE:  runBench,
}

var (
	inputPath    string
	outputJSON   bool
	numWorkers   int
	frameSkip    int
	storeDriver  string
	storeDSN     string
	numFrames    int
	benchWorkers int
	benchSeed    int64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	runCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Recording path, - for stdin (overrides io.input_source)")
	runCmd.Flags().BoolVar(&outputJSON, "json", false, "Output results as JSON lines")
	runCmd.Flags().IntVarP(&numWorkers, "workers", "w", 0, "Number of worker goroutines (overrides pipeline.workers)")
	runCmd.Flags().IntVar(&frameSkip, "skip", 0, "Process every n-th frame (overrides io.frame_skip)")
	runCmd.Flags().StringVar(&storeDriver, "store-driver", "", "Result store driver: postgres or sqlite")
	runCmd.Flags().StringVar(&storeDSN, "store-dsn", "", "Result store connection string (sqlite defaults to io.output_dir/results.db)")

	benchCmd.Flags().IntVarP(&numFrames, "frames", "n", 10000, "Number of frames to generate")
	benchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	benchCmd.Flags().Int64Var(&benchSeed, "seed", time.Now().UnixNano(), "Random seed")

	rootCmd.AddCommand(runCmd, inspectCmd, benchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig falls back to defaults only when the default config file is absent
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return nil, err
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.NewLogger("TrafficSystem", level)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if inputPath != "" {
		cfg.IO.InputSource = inputPath
	}
	if numWorkers > 0 {
		cfg.Pipeline.Workers = numWorkers
	}
	if frameSkip > 0 {
		cfg.IO.FrameSkip = frameSkip
	}
	if storeDriver != "" {
		cfg.Store.Driver = storeDriver
		cfg.Store.DSN = storeDSN
		cfg.IO.SaveResults = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.IO.InputSource == "" {
		return errors.New("no input: set io.input_source or pass --input")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting pipeline on source: %s", cfg.IO.InputSource)
	logger.Debugf("Detector settings: weights=%s conf=%.2f iou=%.2f classes=%v tracker=%s display=%t",
		cfg.Model.Weights, cfg.Model.ConfidenceThreshold, cfg.Model.IOUThreshold,
		cfg.Model.TargetClasses, cfg.Model.Tracker, cfg.IO.ShowDisplay)
	src, err := frames.Open(cfg.IO.InputSource)
	if err != nil {
		return err
	}
	defer src.Close()

	var (
		db    *store.Store
		runID string
	)
	if cfg.IO.SaveResults && cfg.Store.Driver != "" {
		if cfg.Store.Driver == store.DriverSQLite {
			if err := os.MkdirAll(cfg.IO.OutputDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}
		}
		db, err = store.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
		runID, err = db.NewRun(ctx, cfg.IO.InputSource)
		if err != nil {
			return err
		}
		logger.Infof("Saving results to %s store, run %s", cfg.Store.Driver, runID)
	}

	printer := report.NewPrinter(os.Stdout, report.IsTerminal(os.Stdout))
	encoder := json.NewEncoder(os.Stdout)

	processor := pipeline.NewProcessor(pipeline.Options{
		Workers:    cfg.Pipeline.Workers,
		FrameSkip:  cfg.IO.FrameSkip,
		StatsEvery: cfg.Pipeline.StatsEvery,
	}, logger.Named("Pipeline"))

	stats, err := processor.Run(ctx, src, func(r pipeline.Result) error {
		if db != nil {
			if err := db.SaveResult(ctx, runID, r); err != nil {
				return err
			}
		}
		if outputJSON {
			return encoder.Encode(r)
		}
		if verbose {
			pipeline.LogRouting(logger, r)
		}
		printer.Frame(r)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Pipeline terminated by user.")
		} else {
			return fmt.Errorf("pipeline failed: %w", err)
		}
	} else {
		logger.Info("End of stream reached.")
	}

	if !outputJSON {
		printer.Summary(stats)
	}
	return nil
}

type inspectOutput struct {
	Frame        int             `json:"frame"`
	Routing      router.Buckets  `json:"routing"`
	Associations association.Map `json:"associations"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	var r io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open frame: %w", err)
		}
		defer file.Close()
		r = file
	}

	var frame pipeline.Frame
	if err := json.NewDecoder(r).Decode(&frame); err != nil {
		return fmt.Errorf("failed to decode frame: %w", err)
	}

	var logger *zap.SugaredLogger
	if verbose {
		l, err := logging.NewLogger("TrafficSystem", "debug")
		if err != nil {
			return err
		}
		logger = l
	}

	result := pipeline.NewProcessor(pipeline.Options{Workers: 1}, logger).ProcessFrame(frame)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(inspectOutput{
		Frame:        frame.Index,
		Routing:      result.Buckets,
		Associations: result.Associations,
	})
}

func runBench(cmd *cobra.Command, args []string) error {
	printer := report.NewPrinter(os.Stdout, report.IsTerminal(os.Stdout))
	printer.Title("Rider Association Benchmark")

	printer.Info(fmt.Sprintf("Generating %d synthetic frames (seed %d)...", numFrames, benchSeed))
	recording := frames.GenerateFrames(numFrames, benchSeed, frames.DefaultSynthOptions())

	var logger *zap.SugaredLogger
	if verbose {
		l, err := logging.NewLogger("TrafficSystem", "debug")
		if err != nil {
			return err
		}
		logger = l
	}

	processor := pipeline.NewProcessor(pipeline.Options{Workers: benchWorkers}, logger)
	printer.Info(fmt.Sprintf("Running with %d workers...", processor.Options().Workers))

	stats, err := processor.Run(cmd.Context(), pipeline.NewSliceSource(recording), func(pipeline.Result) error {
		return nil
	})
	if err != nil {
		return err
	}

	printer.Summary(stats)
	if stats.FramesProcessed > 0 {
		printer.Stat("Average frame time", stats.Duration/time.Duration(stats.FramesProcessed))
		printer.Stat("Detections per second", fmt.Sprintf("%.0f", float64(stats.Detections)/stats.Duration.Seconds()))
	}
	printer.Success("Benchmark complete")
	return nil
}
