package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyra/ecsify/internal/config"
	"github.com/cyra/ecsify/internal/pipeline"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Normalize every file of the input directory",
		Long: `Normalize every file of the input directory into NDJSON.

Examples:
  ecsify run --in /var/log/collected                    # records to stdout
  ecsify run --in ./logs --out records.ndjson.gz        # compressed file
  ecsify run --config rules.yaml --watch                # re-run on changes
  ecsify run --in ./logs --reference-time 2024-06-01T00:00:00Z`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			ref, err := referenceTime(v)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			opts := []pipeline.Option{pipeline.WithReferenceTime(ref)}
			if cfg.Output.Path == "-" {
				opts = append(opts, pipeline.WithOutput(cmd.OutOrStdout()))
			}

			if v.GetBool("watch") {
				logger.Infof("ecsify %s watching %s", version, cfg.Input.Dir)
				reload := func() (*config.Config, error) { return loadConfig(v) }
				return pipeline.Watch(cmd.Context(), cfg, v.GetString("config"), reload, logger, opts...)
			}
			_, err = pipeline.Run(cmd.Context(), cfg, logger, opts...)
			return err
		},
	}

	f := cmd.Flags()
	f.String("out", "", `output path ("-" for stdout, .gz/.zst to compress)`)
	f.Int64("max-size", 0, "rotate the output file at this many bytes (0 disables)")
	f.Int("workers", 0, "files normalized concurrently")
	f.Bool("strict-timestamps", false, "abort on an invalid timestamp instead of skipping the line")
	f.String("metrics-file", "", "write prometheus counters to this textfile after each run")
	f.String("reference-time", "", "RFC 3339 instant used to infer syslog years (default: now)")
	f.Bool("watch", false, "re-run when the config file or input directory changes")
	_ = v.BindPFlags(f)

	return cmd
}
