// =============================================================================
// webpilot main entry point
// =============================================================================
// CLI for mapping semantic steps onto page elements and executing them.
//
// Usage:
//
//	webpilot run <snapshot.json> <steps.json> [candidates.json]
//	webpilot rank <snapshot.json> <steps.json>
//	webpilot version
// =============================================================================
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/webpilot/config"
	"github.com/BaSui01/webpilot/executor"
	"github.com/BaSui01/webpilot/history"
	"github.com/BaSui01/webpilot/internal/metrics"
	"github.com/BaSui01/webpilot/internal/telemetry"
	"github.com/BaSui01/webpilot/selector"
)

// Version information, injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runRun(os.Args[2:])
	case "rank":
		runRank(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// run command
// =============================================================================

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	strategy := fs.String("strategy", "", "Scoring strategy: structural, spatial, hybrid")
	maxCandidates := fs.Int("max-candidates", 0, "Maximum candidates attempted per step")
	actionTimeout := fs.Duration("action-timeout", 0, "Per-action timeout")
	stepTimeout := fs.Duration("step-timeout", 0, "Per-step timeout")
	historyType := fs.String("history", "", "History store backend: memory, file, redis, sql, mongo")
	output := fs.String("output", "", "Write the session report to this file instead of stdout")
	dryRun := fs.Bool("dry-run", false, "Rank candidates without executing anything")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "run requires <snapshot.json> and <steps.json>")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	applyOverrides(cfg, *strategy, *maxCandidates, *actionTimeout, *stepTimeout, *historyType)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting webpilot",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
	)

	snap, steps, precomputed, err := loadDocuments(fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load input documents: %v\n", err)
		os.Exit(1)
	}

	otelProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelProviders.Shutdown(ctx)
	}()

	store, err := history.NewStore(cfg.History.StoreConfig())
	if err != nil {
		logger.Warn("history store unavailable, running without cross-session learning", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	ranker := selector.NewRanker(cfg.Selector.RankerConfig(), store, logger)

	if *dryRun {
		report := rankReport(ranker, snap, steps, precomputed)
		writeReport(report, *output)
		return
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector("webpilot", logger)
		if cfg.Metrics.Addr != "" {
			go serveMetrics(cfg.Metrics.Addr, logger)
		}
	}
	ranker.WithMetrics(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := buildReporter(ctx, cfg.Progress.Endpoint, logger)

	driver, err := executor.NewChromeDriver(cfg.Browser.DriverConfig(), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start browser: %v\n", err)
		os.Exit(1)
	}
	defer driver.Close()

	if snap.URL != "" {
		navCtx, cancel := context.WithTimeout(ctx, cfg.Engine.EngineConfig().StepTimeout)
		err = driver.Navigate(navCtx, snap.URL)
		cancel()
		if err != nil {
			logger.Warn("initial navigation failed", zap.String("url", snap.URL), zap.Error(err))
		}
	}

	engine := executor.NewEngine(driver, store, reporter, collector, cfg.Engine.EngineConfig(), logger)
	runner := executor.NewRunner(engine, ranker, logger)

	sess := executor.NewSession(snap, steps)
	runner.Run(ctx, sess, precomputed)

	writeReport(sessionReport(sess), *output)
	logger.Info("webpilot finished", zap.String("session_status", string(sess.Status)))
}

// =============================================================================
// rank command
// =============================================================================

func runRank(args []string) {
	fs := flag.NewFlagSet("rank", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	strategy := fs.String("strategy", "", "Scoring strategy: structural, spatial, hybrid")
	maxCandidates := fs.Int("max-candidates", 0, "Maximum candidates per step")
	historyType := fs.String("history", "", "History store backend")
	output := fs.String("output", "", "Write the ranking report to this file instead of stdout")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "rank requires <snapshot.json> and <steps.json>")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	applyOverrides(cfg, *strategy, *maxCandidates, 0, 0, *historyType)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	snap, steps, precomputed, err := loadDocuments(fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load input documents: %v\n", err)
		os.Exit(1)
	}

	store, err := history.NewStore(cfg.History.StoreConfig())
	if err != nil {
		logger.Warn("history store unavailable, ranking without boost", zap.Error(err))
		store = nil
	} else {
		defer store.Close()
	}

	ranker := selector.NewRanker(cfg.Selector.RankerConfig(), store, logger)
	writeReport(rankReport(ranker, snap, steps, precomputed), *output)
}

// =============================================================================
// helpers
// =============================================================================

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// applyOverrides lets explicit flags win over file and environment values.
func applyOverrides(cfg *config.Config, strategy string, maxCandidates int, actionTimeout, stepTimeout time.Duration, historyType string) {
	if strategy != "" {
		cfg.Selector.Strategy = strategy
	}
	if maxCandidates > 0 {
		cfg.Selector.MaxCandidates = maxCandidates
		cfg.Engine.MaxCandidates = maxCandidates
	}
	if actionTimeout > 0 {
		cfg.Engine.ActionTimeout = actionTimeout
	}
	if stepTimeout > 0 {
		cfg.Engine.StepTimeout = stepTimeout
	}
	if historyType != "" {
		cfg.History.Type = historyType
	}
}

func buildReporter(ctx context.Context, endpoint string, logger *zap.Logger) executor.ProgressReporter {
	logRep := executor.NewLogReporter(logger)
	if endpoint == "" {
		return logRep
	}
	ws, err := executor.DialProgressEndpoint(ctx, endpoint, logger)
	if err != nil {
		logger.Warn("progress endpoint unreachable, logging only",
			zap.String("endpoint", endpoint), zap.Error(err))
		return logRep
	}
	return executor.MultiReporter{logRep, ws}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}

// =============================================================================
// version and help
// =============================================================================

func printVersion() {
	fmt.Printf("webpilot %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`webpilot - semantic step mapping and execution for web pages

Usage:
  webpilot <command> [options] <arguments>

Commands:
  run       Map steps onto the snapshot and execute them in the browser
  rank      Score and rank candidates without executing anything
  version   Show version information
  help      Show this help message

Arguments:
  <snapshot.json>    Page snapshot: URL plus interactable elements with
                     selector candidates and bounding boxes
  <steps.json>       Ordered semantic steps to execute
  [candidates.json]  Optional precomputed per-step candidate lists

Options for 'run':
  --config <path>          Path to configuration file (YAML)
  --strategy <name>        structural, spatial, or hybrid (default hybrid)
  --max-candidates <n>     Attempt at most n candidates per step (default 3)
  --action-timeout <d>     Per-action timeout, e.g. 3s
  --step-timeout <d>       Per-step timeout, e.g. 15s
  --history <type>         memory, file, redis, sql, or mongo
  --output <path>          Write the session report to a file
  --dry-run                Rank only, do not execute

Environment:
  WEBPILOT_* variables override file configuration, e.g.
  WEBPILOT_SELECTOR_STRATEGY, WEBPILOT_HISTORY_TYPE,
  WEBPILOT_ENGINE_ACTION_TIMEOUT.

Examples:
  webpilot run snapshot.json steps.json
  webpilot run --strategy structural snapshot.json steps.json candidates.json
  webpilot rank --max-candidates 5 snapshot.json steps.json
  webpilot version`)
}

// =============================================================================
// logging
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	opts := []zap.Option{}
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger, err := zapConfig.Build(opts...)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
