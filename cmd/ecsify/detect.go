package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cyra/ecsify/internal/detect"
	"github.com/cyra/ecsify/internal/pipeline"
)

func newDetectCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Show the detected log type of every input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			results, err := pipeline.Classify(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			known := color.New(color.FgGreen).SprintFunc()
			unknown := color.New(color.FgYellow).SprintFunc()

			width := 0
			for _, r := range results {
				width = max(width, len(filepath.Base(r.File)))
			}

			out := cmd.OutOrStdout()
			for _, r := range results {
				typ := known(r.Type)
				if r.Type == detect.Unknown {
					typ = unknown(r.Type)
				}
				fmt.Fprintf(out, "%-*s  %s\n", width, filepath.Base(r.File), typ)
			}
			return nil
		},
	}
}
