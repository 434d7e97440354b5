package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bridgepool/bridgepool/internal/config"
	"github.com/bridgepool/bridgepool/internal/exporter"
	"github.com/bridgepool/bridgepool/internal/logging"
	"github.com/bridgepool/bridgepool/internal/runner"
	"github.com/bridgepool/bridgepool/internal/version"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "BRIDGEPOOL"
	configFileName = "config"
)

// flags whose value lands in viper under the same name with "_" for "-"
var boundFlags = []string{
	"base", "index-path", "path", "db", "clear", "local-dir", "local-pattern", "format", "dry-run",
	"limit", "latest", "csv-output", "parquet-output", "skip-invalid", "workers", "timeout",
	"lock-file", "upload-bucket", "upload-prefix", "upload-region", "upload-endpoint",
	"log-file", "log-level",
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "bridgepool",
		Short:   "Ingest bridge pool assignment reports into a database or file",
		Version: version.Detailed(),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			level, err := logging.ParseLevel(v.GetString("log_level"))
			if err != nil {
				return err
			}
			closeLog, err := logging.Setup(&logging.Options{
				Level:   level,
				Console: cmd.ErrOrStderr(),
				File:    cfg.LogFile,
			})
			if err != nil {
				return err
			}
			defer closeLog()

			r, err := runner.New(cfg)
			if err != nil {
				return err
			}

			// config is good, usage output no longer helps
			cmd.SilenceUsage = true

			summary, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}

			verb := "exported"
			if summary.DryRun {
				verb = "parsed (dry run)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s files, %s entries -> %s [%s]\n",
				verb,
				humanize.Comma(int64(summary.Files)),
				humanize.Comma(int64(summary.Entries)),
				summary.Output,
				summary.Format,
			)
			return nil
		},
	}

	def := config.Default()
	f := cmd.Flags()
	f.SortFlags = false
	f.String("base", def.BaseURL, "Base url of the collector")
	f.String("index-path", def.IndexPath, "Location of the index document relative to --base")
	f.String("path", def.Target, "Directory inside the index to ingest")
	f.String("db", def.DSN, "Postgres connection string, or sqlite database path")
	f.Bool("clear", false, "Empty the relational tables before writing")
	f.String("local-dir", "", "Read reports from this directory instead of the network")
	f.String("local-pattern", def.LocalPattern, "Glob selecting files inside --local-dir")
	f.String("format", string(def.Format), "Export format: postgres|sqlite|csv|parquet")
	f.Bool("dry-run", false, "Parse only, export nothing")
	f.Int("limit", 0, "Process at most this many files (0 = no limit)")
	f.Int("latest", def.Latest, "Number of newest files taken from the index (0 = all)")
	f.String("csv-output", def.CSVOutput, "CSV output file")
	f.String("parquet-output", def.ParquetOutput, "Parquet output file")
	f.Bool("skip-invalid", false, "Skip files that fail to parse instead of aborting")
	f.Int("workers", 0, "Parallel parse workers (0 = number of CPUs)")
	f.Duration("timeout", def.Timeout, "Timeout of a single http request")
	f.String("lock-file", def.LockFile, "Run lock file, empty disables locking")
	f.String("upload-bucket", "", "Upload the csv/parquet output to this S3 bucket")
	f.String("upload-prefix", "", "Object key prefix for uploads")
	f.String("upload-region", "", "S3 region")
	f.String("upload-endpoint", "", "Custom S3 endpoint (minio, garage)")
	f.String("log-file", "", "Also write logs to this file")
	f.String("log-level", "info", "Log level: debug|info|warn|error")

	cmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.bridgepool/config.{json,yaml})")
	cmd.PersistentFlags().String("env-file", ".env", "Dotenv file loaded before reading the environment")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	}

	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(config.DefaultConfigDir)
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	for _, name := range boundFlags {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	// DB_PARAMS is the historical name of the connection string
	v.BindEnv("db", envPrefix+"_DB", "DB_PARAMS")

	cfg := &config.Config{
		BaseURL:         v.GetString("base"),
		IndexPath:       v.GetString("index_path"),
		Target:          v.GetString("path"),
		DSN:             v.GetString("db"),
		Clear:           v.GetBool("clear"),
		LocalDir:        v.GetString("local_dir"),
		LocalPattern:    v.GetString("local_pattern"),
		Format:          exporter.Format(v.GetString("format")),
		DryRun:          v.GetBool("dry_run"),
		MaxFiles:        v.GetInt("limit"),
		Latest:          v.GetInt("latest"),
		CSVOutput:       v.GetString("csv_output"),
		ParquetOutput:   v.GetString("parquet_output"),
		SkipInvalid:     v.GetBool("skip_invalid"),
		Workers:         v.GetInt("workers"),
		Timeout:         v.GetDuration("timeout"),
		LockFile:        v.GetString("lock_file"),
		LogFile:         v.GetString("log_file"),
		UploadBucket:    v.GetString("upload_bucket"),
		UploadPrefix:    v.GetString("upload_prefix"),
		UploadRegion:    v.GetString("upload_region"),
		UploadEndpoint:  v.GetString("upload_endpoint"),
		UploadAccessKey: v.GetString("upload_access_key"),
		UploadSecretKey: v.GetString("upload_secret_key"),
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("bridgepool failed", "error", err)
		stop()
		os.Exit(1)
	}
}
