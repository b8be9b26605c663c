package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"parwrk/internal/client"
	"parwrk/internal/config"
	"parwrk/internal/execution"
	"parwrk/internal/ui"
	"parwrk/internal/worker"
)

// WorkerCommand handles the worker command
type WorkerCommand struct {
	config   *config.Config
	client   *client.Client
	executor execution.Executor
}

// NewWorkerCommand creates a new WorkerCommand
func NewWorkerCommand(cfg *config.Config, c *client.Client, executor execution.Executor) *WorkerCommand {
	return &WorkerCommand{config: cfg, client: c, executor: executor}
}

// Execute runs the command
func (wc *WorkerCommand) Execute(cmd *cobra.Command, args []string) error {
	log, err := newLogger(wc.config.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := wc.client.WaitForServer(wc.config.Timeout); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(wc.config, log, wc.client, wc.executor)
	w.SetProgress(ui.NewProgressBar(-1))

	failures, err := w.Run(ctx)
	if err != nil {
		return err
	}
	if failures > 0 {
		return fmt.Errorf("%d example(s) failed", failures)
	}
	return nil
}
