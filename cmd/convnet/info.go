package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/born-ml/convnet/internal/models"
	"github.com/born-ml/convnet/internal/tensor"
)

func newInfoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show CPU features, compute settings and the model summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := applyRuntime(cfg); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			pc, feat := tensor.ParallelConfig(), tensor.DetectFeatures()
			_, _ = fmt.Fprintf(out, "cpu:      %s (%d cores)\n", feat, feat.NumCPU)
			_, _ = fmt.Fprintf(out, "gemm:     %s\n", tensor.CurrentGEMM())
			_, _ = fmt.Fprintf(out, "parallel: %v (workers=%d, min_chunk=%d)\n", pc.Enabled, pc.NumWorkers, pc.MinChunkSize)
			_, _ = fmt.Fprintf(out, "models:   %s\n\n", strings.Join(models.Names(), ", "))

			model, err := models.Build(cfg.Architecture(), tensor.NewRNG(cfg.Train.Seed))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%s on %dx%dx%d input, %d classes\n",
				cfg.Model.Name, cfg.Model.Channels, cfg.Model.Height, cfg.Model.Width, cfg.Model.Classes)
			return model.Summary(out)
		},
	}
}
