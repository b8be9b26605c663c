package commands

import (
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"parwrk/internal/config"
	"parwrk/internal/server"
)

// ServerCommand handles the server command
type ServerCommand struct {
	config *config.Config
}

// NewServerCommand creates a new ServerCommand
func NewServerCommand(cfg *config.Config) *ServerCommand {
	return &ServerCommand{config: cfg}
}

// Execute runs the command
func (sc *ServerCommand) Execute(cmd *cobra.Command, args []string) error {
	log, err := newLogger(sc.config.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	srv, err := server.New(sc.config, log, clockwork.NewRealClock())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
