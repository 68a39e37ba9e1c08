package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/convnet/internal/config"
	"github.com/born-ml/convnet/internal/data"
	"github.com/born-ml/convnet/internal/models"
	"github.com/born-ml/convnet/internal/nn"
	"github.com/born-ml/convnet/internal/serialization"
	"github.com/born-ml/convnet/internal/tensor"
	"github.com/born-ml/convnet/internal/train"
)

type trainOptions struct {
	*rootOptions
	epochs     int
	seed       uint64
	checkpoint string
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("epochs") {
				cfg.Train.Epochs = opts.epochs
			}
			if cmd.Flags().Changed("seed") {
				cfg.Train.Seed = opts.seed
			}
			if cmd.Flags().Changed("checkpoint") {
				cfg.Train.Checkpoint = opts.checkpoint
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runTrain(cmd.Context(), cfg, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().IntVar(&opts.epochs, "epochs", 0, "override train.epochs")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "override train.seed")
	cmd.Flags().StringVar(&opts.checkpoint, "checkpoint", "", "write the best model to this path")
	return cmd
}

// runTrain builds everything cfg describes and fits the model.
func runTrain(ctx context.Context, cfg config.Config, out io.Writer, logger *slog.Logger) error {
	if err := applyRuntime(cfg); err != nil {
		return err
	}
	rng := tensor.NewRNG(cfg.Train.Seed)
	model, err := models.Build(cfg.Architecture(), rng.Split())
	if err != nil {
		return err
	}
	if err := model.Summary(out); err != nil {
		return err
	}
	trainSet, evalSet, err := loadData(cfg)
	if err != nil {
		return err
	}

	opt, err := cfg.NewOptimizer(model)
	if err != nil {
		return err
	}
	t := train.New(model, nn.NewCrossEntropyLoss(model), opt, logger)
	t.Scheduler = cfg.NewScheduler(opt)
	if cfg.Train.Shuffle {
		t.Shuffle = rng.Split()
	}
	if es := cfg.Train.EarlyStopping; es != nil {
		t.Callbacks = append(t.Callbacks, train.NewEarlyStopping(es.Patience, es.Threshold))
	}
	if cfg.Train.Checkpoint != "" {
		ckpt := train.NewModelCheckpoint(cfg.Train.Checkpoint, cfg.Model.Name)
		ckpt.Optimizer = cfg.Optimizer.Name
		ckpt.Config = cfg.OptimizerParams()
		t.Callbacks = append(t.Callbacks, ckpt)
	}

	results, err := t.Fit(ctx, trainSet, evalSet, cfg.Train.Epochs)
	if err != nil {
		return err
	}
	return printResults(out, results)
}

func printResults(w io.Writer, results []train.EpochResult) error {
	for _, r := range results {
		line := fmt.Sprintf("epoch %d: loss=%.4f acc=%.2f%% lr=%g",
			r.Train.Epoch, r.Train.Loss, 100*r.Train.Accuracy, r.Train.LR)
		if r.Eval != nil {
			line += fmt.Sprintf(" eval_loss=%.4f eval_acc=%.2f%%", r.Eval.Loss, 100*r.Eval.Accuracy)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// loadData returns the training and evaluation sets described by cfg.
// Without a dedicated test file the samples are split by data.split;
// a split of 1 leaves the evaluation set empty.
func loadData(cfg config.Config) (trainSet, evalSet []data.Sample, err error) {
	var samples []data.Sample
	switch cfg.Data.Source {
	case "synthetic":
		samples, err = data.Synthetic(data.SyntheticConfig{
			Samples:  cfg.Data.Samples,
			Classes:  cfg.Model.Classes,
			Channels: cfg.Model.Channels,
			Height:   cfg.Model.Height,
			Width:    cfg.Model.Width,
			Noise:    cfg.Data.Noise,
			Seed:     cfg.Train.Seed,
		})
	case "csv":
		csvCfg := data.CSVConfig{
			Classes:   cfg.Model.Classes,
			Channels:  cfg.Model.Channels,
			Height:    cfg.Model.Height,
			Width:     cfg.Model.Width,
			HasHeader: cfg.Data.HasHeader,
		}
		samples, err = data.LoadCSVFile(cfg.Data.TrainPath, csvCfg)
		if err == nil && cfg.Data.TestPath != "" {
			evalSet, err = data.LoadCSVFile(cfg.Data.TestPath, csvCfg)
			return samples, evalSet, err
		}
	case "idx":
		idxCfg := data.IDXConfig{Classes: cfg.Model.Classes, Limit: cfg.Data.Limit}
		samples, err = data.LoadIDXFiles(cfg.Data.TrainPath, cfg.Data.TrainLabels, idxCfg)
		if err == nil && cfg.Data.TestPath != "" {
			evalSet, err = data.LoadIDXFiles(cfg.Data.TestPath, cfg.Data.TestLabels, idxCfg)
			return samples, evalSet, err
		}
	case "folder":
		folderCfg := data.ImageFolderConfig{
			Classes:  cfg.Model.Classes,
			Channels: cfg.Model.Channels,
			Height:   cfg.Model.Height,
			Width:    cfg.Model.Width,
			Limit:    cfg.Data.Limit,
		}
		samples, err = data.LoadImageFolder(cfg.Data.TrainPath, cfg.Data.TrainLabels, folderCfg)
		if err == nil && cfg.Data.TestPath != "" {
			evalSet, err = data.LoadImageFolder(cfg.Data.TestPath, cfg.Data.TestLabels, folderCfg)
			return samples, evalSet, err
		}
	default:
		err = fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
	if err != nil {
		return nil, nil, err
	}
	data.Shuffle(samples, tensor.NewRNG(cfg.Train.Seed+1))
	trainSet, evalSet = data.Split(samples, cfg.Data.Split)
	return trainSet, evalSet, nil
}

func newEvalCmd(root *rootOptions) *cobra.Command {
	var checkpoint string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a checkpoint on the configured data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			logger, err := root.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return runEval(cmd.Context(), cfg, checkpoint, cmd.OutOrStdout(), logger)
		},
	}
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "checkpoint to evaluate (required)")
	_ = cmd.MarkFlagRequired("checkpoint")
	return cmd
}

// runEval restores the checkpoint into a fresh model and scores it on the
// evaluation split (or the whole set when the split leaves none).
func runEval(ctx context.Context, cfg config.Config, path string, out io.Writer, logger *slog.Logger) error {
	if err := applyRuntime(cfg); err != nil {
		return err
	}
	ckpt, err := serialization.Load(path)
	if err != nil {
		return err
	}
	if ckpt.Header.Model != "" && ckpt.Header.Model != cfg.Model.Name {
		return fmt.Errorf("checkpoint holds %q, config builds %q", ckpt.Header.Model, cfg.Model.Name)
	}
	model, err := models.Build(cfg.Architecture(), tensor.NewRNG(cfg.Train.Seed))
	if err != nil {
		return err
	}
	if err := serialization.LoadStateDict(model, ckpt); err != nil {
		return err
	}
	trainSet, evalSet, err := loadData(cfg)
	if err != nil {
		return err
	}
	if len(evalSet) == 0 {
		evalSet = trainSet
	}

	opt, err := cfg.NewOptimizer(model)
	if err != nil {
		return err
	}
	t := train.New(model, nn.NewCrossEntropyLoss(model), opt, logger)
	m, err := t.Evaluate(ctx, evalSet)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "samples=%d loss=%.4f acc=%.2f%%\n", m.Samples, m.Loss, 100*m.Accuracy)
	return err
}
