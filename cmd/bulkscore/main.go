// Command bulkscore runs bulk fraud analysis over a CSV file and prints the
// summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudguard/internal/config"
	"fraudguard/internal/observability"
	"fraudguard/internal/scoring"
	"fraudguard/internal/services"
)

type options struct {
	file        string
	policy      string
	concurrency int
	sampleSize  int
	verbose     bool
	scoringURL  string
	timeout     time.Duration
	logLevel    string

	breakerFailures uint32
	breakerCooldown time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "bulkscore:", err)
		os.Exit(2)
	}

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bulkscore:", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. Flag defaults come from cfg, so the
// environment and .env settings shared with the server apply unless
// overridden.
func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	opts := options{
		breakerFailures: uint32(cfg.Scoring.BreakerFailures),
		breakerCooldown: cfg.Scoring.BreakerCooldown,
	}

	fs := flag.NewFlagSet("bulkscore", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.file, "file", "", "CSV file to analyze (- for stdin)")
	fs.StringVar(&opts.policy, "policy", cfg.Scoring.FallbackPolicy, "fallback policy when the scoring service is unavailable: strict or degrade")
	fs.IntVar(&opts.concurrency, "concurrency", cfg.Bulk.Concurrency, "maximum concurrent evaluations")
	fs.IntVar(&opts.sampleSize, "sample", cfg.Bulk.SampleSize, "number of scored rows to include in the summary")
	fs.BoolVar(&opts.verbose, "verbose", false, "include per-row error messages")
	fs.StringVar(&opts.scoringURL, "scoring-url", cfg.Scoring.ServiceURL, "base URL of the remote scoring service")
	fs.DurationVar(&opts.timeout, "timeout", cfg.Scoring.Timeout, "per-call timeout for the scoring service")
	fs.StringVar(&opts.logLevel, "log-level", cfg.Logger.Level, "log level")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.file == "" {
		fmt.Fprintln(stderr, "bulkscore: -file is required")
		fs.Usage()
		return options{}, flag.ErrHelp
	}
	if opts.concurrency < 1 {
		fmt.Fprintln(stderr, "bulkscore: -concurrency must be at least 1")
		return options{}, flag.ErrHelp
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	logger := observability.NewLoggerTo(config.LoggerConfig{Level: opts.logLevel, Format: "text"}, os.Stderr)

	policy, err := scoring.ParsePolicy(opts.policy)
	if err != nil {
		return err
	}

	var remote scoring.RemoteScorer
	if opts.scoringURL != "" {
		remote = scoring.NewRemoteClient(scoring.RemoteConfig{
			BaseURL:         opts.scoringURL,
			Timeout:         opts.timeout,
			BreakerFailures: opts.breakerFailures,
			BreakerCooldown: opts.breakerCooldown,
		}, logger)
	} else if policy == scoring.PolicyStrict {
		return fmt.Errorf("strict policy requires -scoring-url")
	}

	var in io.Reader = os.Stdin
	if opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	evaluator := scoring.NewEvaluator(remote, policy, logger)
	analyzer := services.NewBulkAnalyzer(evaluator, opts.concurrency, opts.sampleSize, logger)

	summary, err := analyzer.Analyze(ctx, in, opts.verbose)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
