// Package main provides the convnet CLI.
//
// Commands:
//
//	convnet train   --config run.yaml   Train a model and checkpoint it
//	convnet eval    --config run.yaml --checkpoint model.cnvt
//	convnet info    [--config run.yaml] Show CPU features and the model summary
//	convnet inspect model.cnvt          Print a checkpoint header
//	convnet export  model.cnvt out.safetensors
//	convnet version
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/born-ml/convnet/internal/config"
	"github.com/born-ml/convnet/internal/tensor"
)

const version = "v0.1.0-dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logFormat  string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:          "convnet",
		Short:        "Train and inspect small convolutional networks on the CPU",
		SilenceUsage: true,
		Version:      version,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML run configuration (defaults are used when empty)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(
		newTrainCmd(opts),
		newEvalCmd(opts),
		newInfoCmd(opts),
		newInspectCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig returns the configuration named by --config, or the defaults.
func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.configPath == "" {
		return config.Default(), nil
	}
	return config.Load(o.configPath)
}

// logger builds the slog logger writing to w.
func (o *rootOptions) logger(w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	switch o.logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want text or json)", o.logFormat)
}

// applyRuntime configures the tensor kernels from cfg.
func applyRuntime(cfg config.Config) error {
	kind, err := tensor.ParseGEMM(cfg.Runtime.GEMM)
	if err != nil {
		return err
	}
	tensor.SetGEMM(kind)
	tensor.SetParallelConfig(cfg.ParallelConfig())
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "convnet %s\n", version)
		},
	}
}
