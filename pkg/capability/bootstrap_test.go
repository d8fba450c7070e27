package capability

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/zen-systems/routegate/pkg/policy"
)

func TestParseBootstrapOutput(t *testing.T) {
	tests := []struct {
		name          string
		output        string
		status        policy.BootstrapStatus
		canInstrument bool
		mode          string
	}{
		{
			name:          "instrumentation active",
			output:        `{"browserInstrumentation":{"canInstrumentFromBrowser":true,"mode":"browser-fetch"}}`,
			status:        policy.BootstrapOK,
			canInstrument: true,
			mode:          "browser-fetch",
		},
		{
			name:   "bootstrap ran but instrumentation unavailable",
			output: `{"browserInstrumentation":{"canInstrumentFromBrowser":false,"mode":"terminal-probe"}}`,
			status: policy.BootstrapOK,
			mode:   "terminal-probe",
		},
		{
			name:          "mode defaulted from capability",
			output:        `{"browserInstrumentation":{"canInstrumentFromBrowser":true}}`,
			status:        policy.BootstrapOK,
			canInstrument: true,
			mode:          "browser-fetch",
		},
		{
			name:   "empty stdout falls back",
			output: "",
			status: policy.BootstrapFallback,
			mode:   "terminal-probe",
		},
		{
			name:   "invalid JSON falls back",
			output: "{not json",
			status: policy.BootstrapFallback,
			mode:   "terminal-probe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ParseBootstrapOutput([]byte(tt.output))
			if report.Status != tt.status {
				t.Errorf("Status = %v, want %v", report.Status, tt.status)
			}
			if report.CanInstrumentFromBrowser != tt.canInstrument {
				t.Errorf("CanInstrumentFromBrowser = %v, want %v", report.CanInstrumentFromBrowser, tt.canInstrument)
			}
			if report.Mode != tt.mode {
				t.Errorf("Mode = %v, want %v", report.Mode, tt.mode)
			}
			if tt.status == policy.BootstrapFallback && report.Reason == "" {
				t.Errorf("fallback report has no reason")
			}
		})
	}
}

func TestGuardedBootstrapRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	t.Run("successful bootstrap", func(t *testing.T) {
		g, err := NewGuardedBootstrap([]string{"sh", "-c",
			`echo '{"browserInstrumentation":{"canInstrumentFromBrowser":true,"mode":"browser-fetch"}}'`}, "")
		if err != nil {
			t.Fatalf("new guarded bootstrap: %v", err)
		}

		report := g.Run(context.Background())
		if report.Status != policy.BootstrapOK {
			t.Errorf("Status = %v, want %v (reason: %s)", report.Status, policy.BootstrapOK, report.Reason)
		}
		if !report.CanInstrumentFromBrowser {
			t.Errorf("CanInstrumentFromBrowser = false, want true")
		}
	})

	t.Run("non-zero exit falls back with stderr", func(t *testing.T) {
		g, err := NewGuardedBootstrap([]string{"sh", "-c", "echo boom 1>&2; exit 3"}, "")
		if err != nil {
			t.Fatalf("new guarded bootstrap: %v", err)
		}

		report := g.Run(context.Background())
		if report.Status != policy.BootstrapFallback {
			t.Errorf("Status = %v, want %v", report.Status, policy.BootstrapFallback)
		}
		if !strings.Contains(report.Reason, "boom") {
			t.Errorf("Reason = %q, want stderr included", report.Reason)
		}
	})

	t.Run("missing binary falls back", func(t *testing.T) {
		g, err := NewGuardedBootstrap([]string{"/nonexistent/bootstrap-script"}, "")
		if err != nil {
			t.Fatalf("new guarded bootstrap: %v", err)
		}

		report := g.Run(context.Background())
		if report.Status != policy.BootstrapFallback {
			t.Errorf("Status = %v, want %v", report.Status, policy.BootstrapFallback)
		}
		if report.CanInstrumentFromBrowser {
			t.Errorf("CanInstrumentFromBrowser = true after launch failure")
		}
	})

	t.Run("snapshot carries fallback status", func(t *testing.T) {
		report := ParseBootstrapOutput(nil)
		snapshot := report.Snapshot()
		if snapshot.Bootstrap != policy.BootstrapFallback {
			t.Errorf("Bootstrap = %v, want %v", snapshot.Bootstrap, policy.BootstrapFallback)
		}
		if snapshot.CanInstrumentFromBrowser {
			t.Errorf("CanInstrumentFromBrowser = true, want false")
		}
	})
}

func TestNewGuardedBootstrapRequiresCommand(t *testing.T) {
	if _, err := NewGuardedBootstrap(nil, ""); err == nil {
		t.Errorf("NewGuardedBootstrap(nil) error = nil, want error")
	}
}
