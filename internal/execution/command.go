package execution

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"parwrk/internal/config"
	"parwrk/internal/domain"
)

// CommandExecutor runs each example by invoking the configured command with
// the example's file path appended. Examples in a batch run sequentially so
// measured run times stay honest; parallelism comes from running more worker
// processes.
type CommandExecutor struct {
	config *config.Config
}

// NewCommandExecutor creates a new CommandExecutor
func NewCommandExecutor(cfg *config.Config) *CommandExecutor {
	return &CommandExecutor{config: cfg}
}

// Execute runs the batch. Without a configured command every example is
// marked pending, which lets a run be rehearsed end to end before the real
// command exists.
func (e *CommandExecutor) Execute(ctx context.Context, examples []domain.Example) []domain.Example {
	results := make([]domain.Example, len(examples))
	for i, ex := range examples {
		if ctx.Err() != nil {
			ex.Status = domain.StatusPending
			results[i] = ex
			continue
		}
		results[i] = e.runOne(ctx, ex)
	}
	return results
}

func (e *CommandExecutor) runOne(ctx context.Context, ex domain.Example) domain.Example {
	parts := strings.Fields(e.config.WorkerCommand)
	if len(parts) == 0 {
		ex.Status = domain.StatusPending
		return ex
	}
	args := append(parts[1:], ex.FilePath)
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Env = os.Environ()

	start := time.Now()
	output, err := cmd.CombinedOutput()
	finish := time.Now()

	ex.StartedAt = start.Format(time.RFC3339Nano)
	ex.FinishedAt = finish.Format(time.RFC3339Nano)
	ex.RunTime = finish.Sub(start).Seconds()
	if err != nil {
		ex.Status = domain.StatusFailed
		ex.Output = string(output)
	} else {
		ex.Status = domain.StatusPassed
	}
	return ex
}
