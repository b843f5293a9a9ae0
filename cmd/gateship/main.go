package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bft-labs/gateship"
	"github.com/bft-labs/gateship/internal/cliconfig"
	"github.com/bft-labs/gateship/internal/domain"
	"github.com/bft-labs/gateship/internal/gate"
	"github.com/bft-labs/gateship/internal/telemetry"
	gslog "github.com/bft-labs/gateship/pkg/log"
)

const helpDescription = `
Read Singer messages from stdin, batch them per stream, and deliver each batch
to the Stitch import gate. State messages are echoed to stdout only after the
records preceding them have been fully handed off, so the emitted state stream
is always a safe resume point.

Modes:
  - default: deliver batches to the gate (requires an API token)
  - --output-file: additionally save every request body to a local file
  - --dry-run: validate records against their schema instead of delivering
`

var exampleUsage = strings.TrimSpace(`
  some-tap | gateship --token <api-token>
  some-tap | gateship --config $HOME/.gateship/config.toml
  some-tap | gateship --dry-run
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "gateship",
		Short:         "Batch and deliver Singer messages to the Stitch import gate",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.gateship/config.toml),
			// then environment, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			} else {
				cfgFile = ""
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			// Log configuration, masking the token.
			logCfg := cfg
			if len(logCfg.Token) > 0 {
				logCfg.Token = "*****"
			}
			log.Info().Interface("config", logCfg).Msg("configuration")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				select {
				case <-sigCh:
					log.Info().Msg("received signal, stopping")
					cancel()
				case <-ctx.Done():
				}
			}()

			return run(ctx, cfg, cfgFile)
		},
	}

	root.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: $HOME/.gateship/config.toml)")
	root.Flags().StringVar(&cfg.Token, "token", cfg.Token, "API token for gate authentication")
	root.Flags().StringVar(&cfg.GateURL, "gate-url", cfg.GateURL, "gate base URL (override only for internal testing)")
	if err := root.Flags().MarkHidden("gate-url"); err != nil {
		log.Info().Err(err).Msg("failed to hide gate-url flag")
	}

	root.Flags().StringVarP(&cfg.OutputFile, "output-file", "o", cfg.OutputFile, "save request bodies to this file")
	root.Flags().BoolVarP(&cfg.DryRun, "dry-run", "n", cfg.DryRun, "validate records against their schema instead of delivering")

	root.Flags().IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "maximum serialized bytes per request body")
	root.Flags().IntVar(&cfg.MaxBatchRecords, "max-batch-records", cfg.MaxBatchRecords, "maximum messages per batch")
	root.Flags().DurationVar(&cfg.BatchDelay, "batch-delay", cfg.BatchDelay, "maximum time between flushes under low volume")
	root.Flags().DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout per delivery attempt")

	root.Flags().BoolVar(&cfg.DisableCollection, "disable-collection", cfg.DisableCollection, "do not send anonymous usage data")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	if err := root.Flags().MarkHidden("metrics-addr"); err != nil {
		log.Info().Err(err).Msg("failed to hide metrics-addr flag")
	}

	if err := root.Execute(); err != nil {
		// Known errors carry an actionable message; everything else gets the
		// full error chain for debugging.
		if domain.IsKnown(err) {
			log.Error().Msg(err.Error())
		} else {
			log.Error().Err(err).Msg("gateship terminated unexpectedly")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile string) error {
	log := cliconfig.Logger()
	logger := gslog.NewZerologAdapterWithLogger(log)

	if url := gate.UseBatchURL(cfg.GateURL); url != cfg.GateURL {
		log.Info().Str("from", cfg.GateURL).Str("to", url).
			Msg("rewrote retired push endpoint to the batch endpoint")
	}

	var metrics *telemetry.Metrics
	if cfg.MetricsAddr != "" {
		metrics = telemetry.NewMetrics()
		go metrics.Serve(ctx, cfg.MetricsAddr, logger)
	}

	pipeline, err := gateship.New(cfg,
		gateship.WithLogger(logger),
		gateship.WithMetrics(metrics),
	)
	if err != nil {
		return err
	}

	if !cfg.DryRun && cfg.Token != "" {
		if !cfg.DisableCollection {
			log.Info().Msg("sending anonymous usage data; set disable_collection to true to opt out")
			go telemetry.Collect(ctx, getVersion(), logger)
		}
		if cfgFile != "" {
			go cliconfig.NewWatcher(cfgFile, logger, pipeline.SetToken).Run(ctx)
		}
	}

	go telemetry.ReportMemory(ctx, logger, telemetry.DefaultMemoryInterval)

	if err := pipeline.Run(ctx, os.Stdin, os.Stdout); err != nil {
		return err
	}
	log.Info().Msg("exiting normally")
	return nil
}
