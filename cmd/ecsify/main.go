package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev" // Set via ldflags: -X main.version=v1.0.0

func main() {
	ctx, cancel := signalContext()
	defer cancel()

	if err := newRootCommand(viper.New()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "ecsify",
		Short: "Normalize heterogeneous log files into ECS-style NDJSON",
		Long: `ecsify reads every file in a directory, works out which log format each
file holds from its content, and writes one ECS-style JSON record per
parsed line.

Flags override the config file; every flag can also be set through an
ECSIFY_ environment variable (--metrics-file is ECSIFY_METRICS_FILE).`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "rules/config file (YAML, or TOML with a .toml extension)")
	pf.String("in", "", "directory of raw log files")
	pf.String("include", "", "only read files whose name matches this glob")
	pf.String("encoding", "", "input encoding (utf-8, latin1, windows-1252, ...)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "log as JSON instead of console text")
	_ = v.BindPFlags(pf)

	v.SetEnvPrefix("ECSIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newRunCommand(v))
	root.AddCommand(newDetectCommand(v))
	root.AddCommand(newVersionCommand())
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "ecsify version %s\n", version)
			return nil
		},
	}
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
