package progress

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/trebuchet-org/wallet-deployer/internal/domain/models"
	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// DeployProgress prints one line per finished unit, wiring step and upgrade
// step and keeps a spinner running for work in flight.
type DeployProgress struct {
	spinner *SpinnerProgressReporter
}

// NewDeployProgress creates a progress sink for deploy and upgrade runs
func NewDeployProgress() *DeployProgress {
	return newDeployProgress(os.Stderr)
}

func newDeployProgress(out io.Writer) *DeployProgress {
	return &DeployProgress{spinner: newSpinnerProgressReporter(out)}
}

// OnProgress handles progress events for deployment operations
func (p *DeployProgress) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	switch event.Stage {
	case "plan_loaded":
		p.spinner.Info(event.Message)

	case "unit_deployed":
		p.spinner.OnProgress(ctx, usecase.ProgressEvent{Message: event.Message})
		line := fmt.Sprintf("  ✓ [%d/%d] %s", event.Current, event.Total, event.Message)
		if rec, ok := event.Metadata.(*models.UnitRecord); ok && rec != nil {
			line += color.New(color.Faint).Sprintf(" %s", rec.Address.Hex())
		}
		p.spinner.Success(line)

	case "unit_skipped":
		p.spinner.println(color.New(color.Faint), fmt.Sprintf("  ⊘ %s", event.Message))

	case "wiring_applied", "wiring_skipped":
		p.spinner.OnProgress(ctx, usecase.ProgressEvent{Message: event.Message})
		icon := "✓"
		if event.Stage == "wiring_skipped" {
			icon = "⊘"
		}
		p.spinner.Success(fmt.Sprintf("  %s wiring %d/%d %s", icon, event.Current, event.Total, event.Message))

	case "deploy_completed", "upgrade_completed":
		p.spinner.Stop()
		p.spinner.Success(event.Message)

	default:
		p.spinner.OnProgress(ctx, event)
	}
}

// Info prints an info message
func (p *DeployProgress) Info(message string) {
	p.spinner.Info(message)
}

// Error prints an error message
func (p *DeployProgress) Error(message string) {
	p.spinner.Stop()
	p.spinner.Error(message)
}

// Ensure DeployProgress implements ProgressSink
var _ usecase.ProgressSink = (*DeployProgress)(nil)
