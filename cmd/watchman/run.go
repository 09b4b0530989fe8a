package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/watchmanhq/watchman/internal/config"
	"github.com/watchmanhq/watchman/internal/logging"
	"github.com/watchmanhq/watchman/internal/scratch"
	"github.com/watchmanhq/watchman/internal/supervisor"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Enter the supervisor loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			return runSupervisor(cfgPath)
		},
	}
}

func runSupervisor(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := scratch.RotateFile(scratch.DefaultLogFileName); err != nil {
		return fmt.Errorf("rotating log file: %w", err)
	}
	logFile, err := os.Create(scratch.DefaultLogFileName)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.New(cfg.Debug, logFile)

	dir, err := scratch.Rotate(scratch.DefaultDirName)
	if err != nil {
		return fmt.Errorf("rotating scratch directory: %w", err)
	}

	monitors, err := cfg.BuildMonitors(dir, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received interrupt, shutting down")
		cancel()
	}()

	logger.Info("watchman starting", "project", cfg.Project, "jobs", len(monitors))
	return supervisor.New(monitors, logger).Run(ctx)
}
