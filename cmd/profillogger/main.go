package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/profillogger/profillogger/internal/config"
	"github.com/profillogger/profillogger/pkg/profillog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "profillogger",
		Short: "profillogger - leveled logging to text, CSV, JSON, SQLite and Badger stores",
		Long: `profillogger records leveled log entries through one or more storage handlers
and queries them back by text, regular expression, date range, level or month.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Add configuration flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringArray("handler", nil, "Storage handler as type=path (text, csv, json, sqlite[=path#table], badger); repeatable")
	rootCmd.PersistentFlags().String("level", "DEBUG", "Minimum level persisted (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	rootCmd.PersistentFlags().String("reader", "", "Name of the handler queried by find and group (default: first handler)")
	rootCmd.PersistentFlags().String("timezone", "UTC", "Time zone for month grouping (IANA name, UTC or Local)")
	rootCmd.PersistentFlags().String("log-level", "info", "Diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Diagnostic log format (text, json)")
	rootCmd.PersistentFlags().Bool("print-metrics", false, "Print Prometheus metrics to stderr on exit")

	rootCmd.AddCommand(newLogCommand(), newFindCommand(), newGroupCommand())
	return rootCmd
}

func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <message...>",
		Short: "Record a log entry on every handler",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			severity, _ := cmd.Flags().GetString("severity")
			level, err := profillog.ParseLevel(severity)
			if err != nil {
				return err
			}

			return withApp(cmd, func(a *app) error {
				a.logger.Log(level, strings.Join(args, " "))
				return nil
			})
		},
	}
	cmd.Flags().StringP("severity", "s", "INFO", "Level of the recorded entry")
	return cmd
}

func newFindCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Search stored entries",
	}
	addRangeFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "text <substring>",
		Short: "Entries whose message contains the substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(r *profillog.Reader, tr profillog.TimeRange) interface{} {
				return r.FindByText(args[0], tr)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "regex <pattern>",
		Short: "Entries whose message matches the regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(r *profillog.Reader, tr profillog.TimeRange) interface{} {
				return r.FindByRegex(args[0], tr)
			})
		},
	})
	return cmd
}

func newGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Group stored entries",
	}
	addRangeFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "level",
		Short: "Group entries by level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(r *profillog.Reader, tr profillog.TimeRange) interface{} {
				return r.GroupByLevel(tr)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "month",
		Short: "Group entries by YYYY-MM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(r *profillog.Reader, tr profillog.TimeRange) interface{} {
				return r.GroupByMonth(tr)
			})
		},
	})
	return cmd
}

func addRangeFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("start", "", "Only entries at or after this ISO-8601 time")
	cmd.PersistentFlags().String("end", "", "Only entries before this ISO-8601 time")
}

func parseRange(cmd *cobra.Command) (profillog.TimeRange, error) {
	var tr profillog.TimeRange
	for flag, dst := range map[string]*time.Time{"start": &tr.Start, "end": &tr.End} {
		value, _ := cmd.Flags().GetString(flag)
		if value == "" {
			continue
		}
		t, err := profillog.ParseTimestamp(value)
		if err != nil {
			return tr, fmt.Errorf("--%s: %w", flag, err)
		}
		*dst = t
	}
	return tr, nil
}

func runQuery(cmd *cobra.Command, query func(*profillog.Reader, profillog.TimeRange) interface{}) error {
	tr, err := parseRange(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, func(a *app) error {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(query(a.reader, tr))
	})
}

// app holds the wiring shared by every subcommand
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	registry *prometheus.Registry
	logger   *profillog.Logger
	reader   *profillog.Reader
}

func withApp(cmd *cobra.Command, fn func(*app) error) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	setupLogging(log, cfg.LogLevel, cfg.LogFormat)

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	runErr := fn(a)

	if cfg.Metrics.Print {
		if err := printMetrics(cmd.ErrOrStderr(), a.registry); err != nil {
			log.WithError(err).Warn("Failed to print metrics")
		}
	}

	return errors.Join(runErr, a.logger.Close())
}

func newApp(cfg *config.Config, log *logrus.Logger) (*app, error) {
	handlers := make([]profillog.Handler, 0, len(cfg.Handlers))
	for _, hc := range cfg.Handlers {
		h, err := profillog.NewHandler(hc, log)
		if err != nil {
			for _, opened := range handlers {
				profillog.CloseHandler(opened)
			}
			return nil, err
		}
		handlers = append(handlers, profillog.WithName(h, hc.Name))
	}

	registry := prometheus.NewRegistry()
	metrics := profillog.NewMetrics(cfg.Metrics.Namespace, registry)

	logger := profillog.NewLogger(handlers, log)
	if _, err := profillog.ParseLevel(cfg.Level); err != nil {
		log.WithError(err).WithField("threshold", logger.Level().String()).
			Warn("Ignoring configured threshold")
	}
	logger.SetLevel(cfg.Level)
	logger.SetMetrics(metrics)

	reader := profillog.NewReader(handlers[cfg.ReaderHandlerIndex()], log)
	reader.SetMetrics(metrics)
	reader.SetLocation(cfg.Location())

	log.WithFields(logrus.Fields{
		"version":  version,
		"handlers": len(handlers),
		"level":    logger.Level().String(),
	}).Debug("profillogger ready")

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		logger:   logger,
		reader:   reader,
	}, nil
}

func setupLogging(log *logrus.Logger, level, format string) {
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}
}

func printMetrics(w io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
