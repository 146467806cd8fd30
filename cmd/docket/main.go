// docket manages tickets in any store docket has a driver for.
//
// The store is chosen by its connection descriptor, taken from --dsn,
// DOCKET_DSN or the config file, in that order.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	_ "github.com/jacentio/docket/driver/dynamo"
	_ "github.com/jacentio/docket/driver/memory"
	_ "github.com/jacentio/docket/driver/mongodb"
	"github.com/jacentio/docket/internal/config"
	"github.com/jacentio/docket/store"
	"github.com/jacentio/docket/ticket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// usageError is a problem with the command line. It exits with status 2.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }
func (e *usageError) ExitCode() int { return 2 }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var configPath, dsn string
	var dumpMetrics bool

	flagSet := pflag.NewFlagSet("docket", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", os.Getenv("DOCKET_CONFIG"), "path to a YAML config file")
	flagSet.StringVar(&dsn, "dsn", "", "connection descriptor, overriding config and "+config.EnvDSN)
	flagSet.BoolVar(&dumpMetrics, "metrics", false, "print repository metrics to stderr on exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stderr, flagSet)
			return nil
		}
		return usagef("%v", err)
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(stderr, flagSet)
		return usagef("missing command")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		return usagef("unknown command %q", rest[0])
	}
	act, err := cmd.parse(rest[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath, config.WithDSN(dsn))
	if err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	metrics := store.NewMetrics(cfg.Metrics.Namespace)
	if err := metrics.Register(reg); err != nil {
		return err
	}
	if dumpMetrics {
		defer writeMetrics(stderr, reg, logger)
	}

	opts := []store.Option{store.WithLogger(logger), store.WithMetrics(metrics)}
	if cfg.OptimisticConcurrency {
		opts = append(opts, store.WithOptimisticConcurrency())
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	svc, err := ticket.Connect(ctx, cfg.DSN, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	return act(ctx, svc, stdout)
}

func writeMetrics(w io.Writer, g prometheus.Gatherer, logger *zap.Logger) {
	families, err := g.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
			return
		}
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "  %-8s %s\n", name, commands[name].summary)
	}

	fmt.Fprintf(w, `docket manages tickets.

Usage:
  docket [flags] <command> [command flags]

Commands:
%s
Examples:
  # List tickets in a local MongoDB
  docket --dsn mongodb://localhost:27017/shop list

  # Add a ticket to a sharded DynamoDB table
  docket --dsn "dynamodb:///tickets?shards=8&region=eu-west-1" add --event "Opening night" --price 40

Flags:
`, b.String())
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
