package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/eringen/storypub"
	"github.com/eringen/storypub/logging"
)

type rootOptions struct {
	envFile string
	log     *logrus.Logger
	closer  io.Closer
	cfg     storypub.SiteConfig
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "storypub",
		Short:         "story store and static site publisher",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: `storypub serve
storypub render
storypub migrate
storypub list`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return opts.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.closer != nil {
				return opts.closer.Close()
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "file of KEY=value pairs loaded before the environment is read")

	cmd.AddCommand(
		newServeCommand(opts),
		newRenderCommand(opts),
		newMigrateCommand(opts),
		newListCommand(opts),
		newVersionCommand(),
	)
	cmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

// load reads the env file (if present) and the environment into the config,
// then builds the logger.
func (o *rootOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	if err := cleanenv.ReadEnv(&o.cfg); err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	log, closer, err := logging.New(logging.Config{
		Level:     o.cfg.LogLevel,
		Format:    o.cfg.LogFormat,
		File:      o.cfg.LogFile,
		MaxSizeMB: o.cfg.LogMaxSizeMB,
		MaxFiles:  o.cfg.LogMaxFiles,
	})
	if err != nil {
		return err
	}
	o.log, o.closer = log, closer
	return nil
}

// app builds and initializes the application from the loaded config.
func (o *rootOptions) app(ctx context.Context) (*storypub.App, error) {
	a := storypub.New(o.cfg, storypub.WithLogger(o.log))
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	return a, nil
}
