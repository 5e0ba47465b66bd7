package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/fillconv/internal/config"
	"github.com/Faultbox/fillconv/internal/logger"
	"github.com/Faultbox/fillconv/internal/magick"
	"github.com/Faultbox/fillconv/internal/pipeline"
	"github.com/Faultbox/fillconv/pkg/fillplane"
)

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if path := config.SaveConfigPath(); path != "" {
		if err := cfg.SaveTo(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
		return nil
	}

	logOpts := logger.Options{Level: cfg.Logging.Level, Console: cmd.OutOrStdout()}
	if cfg.Logging.LogFile != "" {
		logOpts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Setup(logOpts); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	logger.Sugar.Infof("%s version %s", cmd.Name(), version)
	logger.Sugar.Debugf("Config: %+v", cfg)

	job, err := fillplane.NewJob(
		fillplane.Args{Diffuse: args[0], Normal: args[1]},
		fillplane.Layout{TmpDir: cfg.Paths.TmpDir, OutputSubdir: cfg.Paths.OutputSubdir},
	)
	if err != nil {
		var unsupported *fillplane.UnsupportedError
		if errors.As(err, &unsupported) {
			logger.Warn("This tool only supports PNG or DDS files",
				zap.String("fillplane", unsupported.Name),
				zap.String("extension", unsupported.Extension),
				zap.String("reason", unsupported.Reason))
		}
		return err
	}

	ctx := cmd.Context()
	proc, err := newProcessor(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, proc, job, pipeline.Options{KeepIntermediates: cfg.Paths.KeepIntermediates})
	if err != nil {
		return err
	}

	logger.Info("Outputs written",
		zap.String("diffuse", res.Diffuse),
		zap.String("normal", res.Normal),
		zap.String("height", res.Height))
	if len(res.Intermediates) > 0 {
		logger.Info("Intermediates kept", zap.String("dir", job.TmpDir), zap.Strings("files", res.Intermediates))
	}
	fmt.Fprintln(cmd.OutOrStdout(), doneMessage)
	return nil
}

func newProcessor(ctx context.Context, cfg *config.Config) (pipeline.Processor, error) {
	params := pipeline.ParamsFromConfig(cfg.Texture)
	switch cfg.Backend.Name {
	case config.BackendMagick:
		runner := magick.ExecRunner{}
		if err := magick.Verify(ctx, runner, cfg.Backend.MagickPath); err != nil {
			return nil, err
		}
		return magick.New(cfg.Backend.MagickPath, runner, params), nil
	default:
		return pipeline.NewNative(params), nil
	}
}
