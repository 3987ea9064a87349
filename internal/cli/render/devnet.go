package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// DevnetRenderer renders devnet operation results
type DevnetRenderer struct {
	out io.Writer
}

// NewDevnetRenderer creates a new devnet renderer
func NewDevnetRenderer(out io.Writer) *DevnetRenderer {
	return &DevnetRenderer{out: out}
}

// Render renders the devnet operation result
func (r *DevnetRenderer) Render(result *usecase.ManageDevnetResult) error {
	switch result.Operation {
	case usecase.DevnetStart, usecase.DevnetRestart:
		fmt.Fprintf(r.out, "✅ %s\n", result.Message)
		color.New(color.FgYellow).Fprintf(r.out, "📋 Logs: %s\n", result.Status.LogFile)
		color.New(color.FgBlue).Fprintf(r.out, "🌐 RPC URL: %s\n", result.Status.RPCURL)
	case usecase.DevnetStop, usecase.DevnetSnapshot, usecase.DevnetRevert:
		fmt.Fprintf(r.out, "✅ %s\n", result.Message)
	case usecase.DevnetStatus:
		r.renderStatus(result)
	case usecase.DevnetLogs:
		fmt.Fprintln(r.out, faintStyle.Sprintf("Log file: %s", result.Instance.LogFile))
	default:
		return fmt.Errorf("unknown operation: %s", result.Operation)
	}
	return nil
}

func (r *DevnetRenderer) renderStatus(result *usecase.ManageDevnetResult) {
	status := result.Status
	sectionHeaderStyle.Fprintf(r.out, "📊 Devnet Status (%s):\n", result.Instance.Name)

	if status.Running {
		color.New(color.FgGreen).Fprintf(r.out, "Status: 🟢 Running (PID %d)\n", status.PID)
	} else {
		color.New(color.FgRed).Fprintln(r.out, "Status: 🔴 Not running")
		fmt.Fprintln(r.out, faintStyle.Sprintf("PID file: %s", result.Instance.PidFile))
	}
	fmt.Fprintf(r.out, "RPC URL: %s\n", status.RPCURL)
	fmt.Fprintln(r.out, faintStyle.Sprintf("Log file: %s", status.LogFile))

	if status.RPCHealthy {
		color.New(color.FgGreen).Fprintf(r.out, "RPC Health: ✅ Responding (chain %d)\n", status.ChainID)
		if result.Instance.ChainID != 0 && status.ChainID != result.Instance.ChainID {
			fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("node reports chain %d but %s is configured as %d", status.ChainID, result.Instance.Name, result.Instance.ChainID)))
		}
	} else {
		color.New(color.FgRed).Fprintln(r.out, "RPC Health: ❌ Not responding")
	}
}
