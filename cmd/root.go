// Package cmd implements the worklog command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/worklog/app"
	"github.com/kilianp07/worklog/config"
	"github.com/kilianp07/worklog/infra/logger"
)

// Execute runs the CLI.
func Execute() error { return NewRootCmd().Execute() }

type rootOptions struct {
	cfgPath string
}

// NewRootCmd builds the command tree. Running it without a subcommand serves
// the HTTP API.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "worklog",
		Short:        "Fleet vehicle daily work-hour ledger",
		SilenceUsage: true,
		RunE:         opts.serve,
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json); defaults and K_ environment only when empty")

	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Serve the HTTP API", RunE: opts.serve},
		newMigrateCmd(opts),
		newLogCmd(opts),
		newReportCmd(opts),
		newVehicleCmd(opts),
		newUserCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withService opens the service for a one-shot command and closes it after fn.
func (o *rootOptions) withService(fn func(*app.Service) error) error {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)
	return fn(svc)
}

func closeService(svc *app.Service) {
	if err := svc.Close(); err != nil {
		logger.New("main").Errorf("service close: %v", err)
	}
}

func (o *rootOptions) serve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := o.load()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer closeService(svc)
	return svc.Run(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
