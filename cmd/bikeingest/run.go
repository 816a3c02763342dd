package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/baldanca/bike-ingestor/config"
	"github.com/baldanca/bike-ingestor/encoder"
	"github.com/baldanca/bike-ingestor/ingestor"
	"github.com/baldanca/bike-ingestor/notify"
	"github.com/baldanca/bike-ingestor/sink"
	"github.com/baldanca/bike-ingestor/source"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch every page and write today's artifact",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log, err := newLogger(cfg.Log, os.Stdout)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ig, err := buildIngestor(ctx, cfg, log)
		if err != nil {
			return err
		}
		_, err = ig.Run(ctx)
		return err
	},
}

func newLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", "bikeingest").
		Logger(), nil
}

// buildIngestor wires the configured source, encoder, sink and notifier.
func buildIngestor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*ingestor.Ingestor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	src := source.NewSeoul(source.SeoulConfig{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.Key,
		Timeout: cfg.API.Timeout,
	})

	enc, err := encoder.New(cfg.Artifact.Format)
	if err != nil {
		return nil, err
	}

	s3c, err := sink.NewS3Client(ctx, sink.S3ClientConfig{
		Endpoint:     cfg.Store.Endpoint,
		Region:       cfg.Store.Region,
		AccessKey:    cfg.Store.AccessKey,
		SecretKey:    cfg.Store.SecretKey,
		UsePathStyle: cfg.Store.PathStyle,
	})
	if err != nil {
		return nil, err
	}
	sk := sink.New(s3c, cfg.Store.Bucket, cfg.Store.Prefix)

	opts := []ingestor.Option{ingestor.WithLogger(log)}

	if cfg.Retry.Attempts > 1 {
		opts = append(opts, ingestor.WithRetryPolicy(ingestor.BackoffRetry{
			Attempts:        cfg.Retry.Attempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}))
	}

	if cfg.Notify.QueueURL != "" {
		sqsc, err := notify.NewSQSClient(ctx, cfg.Store.Region)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ingestor.WithNotifier(notify.NewSQS(sqsc, cfg.Notify.QueueURL)))
	}

	return ingestor.New(
		ingestor.Config{
			PageSize:        cfg.API.PageSize,
			MaxPages:        cfg.API.MaxPages,
			StopOnShortPage: cfg.API.StopOnShortPage,
		},
		src,
		enc,
		sk,
		ingestor.DateKeyFunc(cfg.Artifact.Name, enc.FileExtension(), loc),
		opts...,
	)
}
