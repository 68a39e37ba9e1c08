package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/born-ml/convnet/internal/serialization"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <checkpoint>",
		Short: "Print the header and tensor table of a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ckpt, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			return printCheckpoint(cmd.OutOrStdout(), ckpt)
		},
	}
}

func printCheckpoint(w io.Writer, ckpt *serialization.Checkpoint) error {
	h := ckpt.Header
	_, _ = fmt.Fprintf(w, "model:    %s\n", h.Model)
	_, _ = fmt.Fprintf(w, "format:   v%d (flags %#x)\n", h.FormatVersion, ckpt.Flags)
	_, _ = fmt.Fprintf(w, "created:  %s\n", h.CreatedAt.Format(time.RFC3339))
	if tr := h.Training; tr != nil {
		_, _ = fmt.Fprintf(w, "run:      %s\n", tr.RunID)
		_, _ = fmt.Fprintf(w, "progress: epoch %d, step %d, loss %.4f, acc %.2f%%\n",
			tr.Epoch, tr.Step, tr.Loss, 100*tr.Accuracy)
		_, _ = fmt.Fprintf(w, "optim:    %s", tr.Optimizer)
		for _, k := range slices.Sorted(maps.Keys(tr.OptimizerConfig)) {
			_, _ = fmt.Fprintf(w, " %s=%g", k, tr.OptimizerConfig[k])
		}
		_, _ = fmt.Fprintln(w)
	}
	for _, k := range slices.Sorted(maps.Keys(h.Metadata)) {
		_, _ = fmt.Fprintf(w, "meta:     %s=%s\n", k, h.Metadata[k])
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "\nNAME\tSHAPE\tBYTES")
	for _, t := range h.Tensors {
		_, _ = fmt.Fprintf(tw, "%s\t%dx%d\t%d\n", t.Name, t.Rows, t.Cols, t.Size)
	}
	return tw.Flush()
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <checkpoint> <out.safetensors>",
		Short: "Convert a checkpoint to the SafeTensors format",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ckpt, err := serialization.Load(args[0])
			if err != nil {
				return err
			}
			tensors := make([]serialization.NamedTensor, 0, ckpt.Len())
			for _, name := range ckpt.Names() {
				t, err := ckpt.Tensor(name)
				if err != nil {
					return err
				}
				tensors = append(tensors, serialization.NamedTensor{Name: name, Tensor: t})
			}
			meta := map[string]string{"model": ckpt.Header.Model}
			maps.Copy(meta, ckpt.Header.Metadata)

			//nolint:gosec // G304: output path comes from the command line
			f, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := serialization.ExportSafeTensors(f, tensors, meta); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d tensors to %s\n", len(tensors), args[1])
			return nil
		},
	}
}
