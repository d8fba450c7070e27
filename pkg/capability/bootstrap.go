package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/zen-systems/routegate/pkg/policy"
)

// BootstrapReport is the machine-readable outcome of a guarded bootstrap
// run. It never falsely reports active browser instrumentation: any failure
// to launch, parse, or trust the underlying bootstrap degrades to a
// terminal-probe fallback with a reason, not an error.
type BootstrapReport struct {
	Status                   policy.BootstrapStatus `json:"status"`
	Reason                   string                 `json:"reason,omitempty"`
	CanInstrumentFromBrowser bool                   `json:"canInstrumentFromBrowser"`
	Mode                     string                 `json:"mode"`
}

// Snapshot converts the report into the engine's capability input.
func (r *BootstrapReport) Snapshot() *policy.Snapshot {
	return &policy.Snapshot{
		CanInstrumentFromBrowser: r.CanInstrumentFromBrowser,
		Bootstrap:                r.Status,
	}
}

// bootstrapPayload is the subset of the underlying bootstrap's JSON output
// this wrapper trusts.
type bootstrapPayload struct {
	BrowserInstrumentation struct {
		CanInstrumentFromBrowser bool   `json:"canInstrumentFromBrowser"`
		Mode                     string `json:"mode"`
	} `json:"browserInstrumentation"`
}

// GuardedBootstrap wraps an external bootstrap command. The command is
// expected to print a JSON payload on stdout and exit zero.
type GuardedBootstrap struct {
	command []string
	workdir string
}

// NewGuardedBootstrap creates a guarded bootstrap around the given command.
func NewGuardedBootstrap(command []string, workdir string) (*GuardedBootstrap, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("guarded bootstrap requires a command")
	}
	return &GuardedBootstrap{command: command, workdir: workdir}, nil
}

// Run executes the bootstrap and reports its outcome.
func (g *GuardedBootstrap) Run(ctx context.Context) *BootstrapReport {
	cmd := exec.CommandContext(ctx, g.command[0], g.command[1:]...)
	cmd.Dir = g.workdir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			reason := fmt.Sprintf("bootstrap returned non-zero exit code: %v", err)
			if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
				reason = fmt.Sprintf("%s: %s", reason, msg)
			}
			return fallbackReport(reason)
		}
		return fallbackReport(fmt.Sprintf("bootstrap launch failed: %v", err))
	}

	return ParseBootstrapOutput(stdout.Bytes())
}

// ParseBootstrapOutput interprets the bootstrap's stdout. Empty or invalid
// output degrades to fallback.
func ParseBootstrapOutput(output []byte) *BootstrapReport {
	trimmed := bytes.TrimSpace(output)
	if len(trimmed) == 0 {
		return fallbackReport("bootstrap produced empty stdout")
	}

	var payload bootstrapPayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return fallbackReport(fmt.Sprintf("bootstrap emitted invalid JSON: %v", err))
	}

	mode := payload.BrowserInstrumentation.Mode
	if mode == "" {
		if payload.BrowserInstrumentation.CanInstrumentFromBrowser {
			mode = "browser-fetch"
		} else {
			mode = "terminal-probe"
		}
	}

	return &BootstrapReport{
		Status:                   policy.BootstrapOK,
		CanInstrumentFromBrowser: payload.BrowserInstrumentation.CanInstrumentFromBrowser,
		Mode:                     mode,
	}
}

func fallbackReport(reason string) *BootstrapReport {
	return &BootstrapReport{
		Status:                   policy.BootstrapFallback,
		Reason:                   reason,
		CanInstrumentFromBrowser: false,
		Mode:                     "terminal-probe",
	}
}
