package policy

import (
	"errors"
	"reflect"
	"testing"
)

func TestEvaluate_KillSwitchDisablesEverything(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name string
		env  string
	}{
		{name: "false", env: "false"},
		{name: "zero", env: "0"},
		{name: "off", env: "off"},
		{name: "disabled", env: "disabled"},
		{name: "no", env: "no"},
		{name: "mixed case", env: "FALSE"},
		{name: "padded", env: "  Off  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Everything else says route; the kill-switch must still win.
			decision, err := engine.Evaluate(Request{
				Skill:           SkillWorkflowsWork,
				TriggerClass:    TriggerRuntimeBug,
				ExplicitRequest: true,
				StrictEvidence:  true,
				KillSwitchEnv:   tt.env,
				Capability:      &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
			})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.RuleID != RuleKillSwitch {
				t.Errorf("RuleID = %v, want %v", decision.RuleID, RuleKillSwitch)
			}
			if decision.KillSwitchState != KillSwitchDisabled {
				t.Errorf("KillSwitchState = %v, want %v", decision.KillSwitchState, KillSwitchDisabled)
			}
			if decision.RoutingAttempted {
				t.Errorf("RoutingAttempted = true, want false")
			}
			if decision.ModeSelected != ModeNone {
				t.Errorf("ModeSelected = %v, want %v", decision.ModeSelected, ModeNone)
			}
			if decision.OutcomeStatus != OutcomeNone {
				t.Errorf("OutcomeStatus = %v, want %v", decision.OutcomeStatus, OutcomeNone)
			}
		})
	}
}

func TestEvaluate_KillSwitchFailOpen(t *testing.T) {
	tests := []struct {
		name string
		env  string
	}{
		{name: "unset", env: ""},
		{name: "true", env: "true"},
		{name: "one", env: "1"},
		{name: "typo", env: "flase"},
		{name: "unrecognized", env: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseKillSwitch(tt.env); got != KillSwitchEnabled {
				t.Errorf("ParseKillSwitch(%q) = %v, want %v", tt.env, got, KillSwitchEnabled)
			}
		})
	}
}

func TestEvaluate_SessionOptOut(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name   string
		hints  []string
		optOut bool
	}{
		{name: "manual-only", hints: []string{"manual-only"}, optOut: true},
		{name: "no-auto-routing", hints: []string{"no-auto-routing"}, optOut: true},
		{name: "skip-browser-debug", hints: []string{"skip-browser-debug"}, optOut: true},
		{name: "mixed case", hints: []string{"Manual-Only"}, optOut: true},
		{name: "padded", hints: []string{"  manual-only  "}, optOut: true},
		{name: "buried in other hints", hints: []string{"verbose", "manual-only"}, optOut: true},
		{name: "substring does not match", hints: []string{"not-manual-only-please"}, optOut: false},
		{name: "unrelated hints", hints: []string{"verbose", "dark-mode"}, optOut: false},
		{name: "no hints", hints: nil, optOut: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(Request{
				Skill:        SkillWorkflowsWork,
				TriggerClass: TriggerRuntimeBug,
				SessionHints: tt.hints,
				Capability:   &Snapshot{CanInstrumentFromBrowser: true},
			})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if tt.optOut {
				if decision.RuleID != RuleSessionOptOut {
					t.Errorf("RuleID = %v, want %v", decision.RuleID, RuleSessionOptOut)
				}
				if decision.RoutingAttempted {
					t.Errorf("RoutingAttempted = true, want false")
				}
				if decision.KillSwitchState != KillSwitchEnabled {
					t.Errorf("KillSwitchState = %v, want %v", decision.KillSwitchState, KillSwitchEnabled)
				}
			} else if decision.RuleID == RuleSessionOptOut {
				t.Errorf("RuleID = %v, want routing to proceed", decision.RuleID)
			}
		})
	}
}

func TestEvaluate_TriggerMatching(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		skill    Skill
		trigger  TriggerClass
		explicit bool
		rule     RuleID
		matched  bool
	}{
		{
			name:    "profile match",
			skill:   SkillWorkflowsWork,
			trigger: TriggerRuntimeBug,
			rule:    RuleTriggerMatch,
			matched: true,
		},
		{
			name:     "explicit label precedence over profile match",
			skill:    SkillWorkflowsWork,
			trigger:  TriggerRuntimeBug,
			explicit: true,
			rule:     RuleExplicitRoute,
			matched:  true,
		},
		{
			name:     "explicit without profile match",
			skill:    SkillWorkflowsPlan,
			trigger:  TriggerRuntimeBug,
			explicit: true,
			rule:     RuleExplicitRoute,
			matched:  true,
		},
		{
			name:    "no match",
			skill:   SkillWorkflowsPlan,
			trigger: TriggerRuntimeBug,
			rule:    RuleNoRoute,
		},
		{
			name:    "non-runtime never matches a profile",
			skill:   SkillBrowserAutomation,
			trigger: TriggerNonRuntime,
			rule:    RuleNoRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(Request{
				Skill:           tt.skill,
				TriggerClass:    tt.trigger,
				ExplicitRequest: tt.explicit,
				Capability:      &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
			})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.RuleID != tt.rule {
				t.Errorf("RuleID = %v, want %v", decision.RuleID, tt.rule)
			}
			if decision.TriggerMatched != tt.matched {
				t.Errorf("TriggerMatched = %v, want %v", decision.TriggerMatched, tt.matched)
			}
			if tt.rule == RuleNoRoute && decision.RoutingAttempted {
				t.Errorf("RoutingAttempted = true, want false for no-route")
			}
		})
	}
}

func TestEvaluate_CapabilityUnknownBlocks(t *testing.T) {
	engine := NewEngine(nil)

	decision, err := engine.Evaluate(Request{
		Skill:        SkillWorkflowsWork,
		TriggerClass: TriggerRuntimeBug,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if decision.OutcomeStatus != OutcomeBlocked {
		t.Errorf("OutcomeStatus = %v, want %v", decision.OutcomeStatus, OutcomeBlocked)
	}
	if decision.ModeSelected != ModeNone {
		t.Errorf("ModeSelected = %v, want %v", decision.ModeSelected, ModeNone)
	}
	if decision.AutoInvoked {
		t.Errorf("AutoInvoked = true, want false")
	}
	if !decision.RoutingAttempted {
		t.Errorf("RoutingAttempted = false, want true")
	}
}

func TestEvaluate_ModeSelection(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		strict   bool
		snapshot *Snapshot
		mode     Mode
		fallback bool
		outcome  OutcomeStatus
	}{
		{
			name:     "cannot instrument forces terminal-probe",
			snapshot: &Snapshot{CanInstrumentFromBrowser: false, Bootstrap: BootstrapOK},
			mode:     ModeTerminalProbe,
			fallback: true,
			outcome:  OutcomePartial,
		},
		{
			name:     "bootstrap fallback alone forces terminal-probe",
			snapshot: &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapFallback},
			mode:     ModeTerminalProbe,
			fallback: true,
			outcome:  OutcomePartial,
		},
		{
			name:     "both degraded forces terminal-probe",
			snapshot: &Snapshot{CanInstrumentFromBrowser: false, Bootstrap: BootstrapFallback},
			mode:     ModeTerminalProbe,
			fallback: true,
			outcome:  OutcomePartial,
		},
		{
			name:     "confirmed capability selects core",
			snapshot: &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
			mode:     ModeCore,
			outcome:  OutcomeSuccess,
		},
		{
			name:     "confirmed capability without bootstrap status selects core",
			snapshot: &Snapshot{CanInstrumentFromBrowser: true},
			mode:     ModeCore,
			outcome:  OutcomeSuccess,
		},
		{
			name:     "strict evidence selects enhanced",
			strict:   true,
			snapshot: &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
			mode:     ModeEnhanced,
			outcome:  OutcomeSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := engine.Evaluate(Request{
				Skill:          SkillWorkflowsWork,
				TriggerClass:   TriggerRuntimeBug,
				StrictEvidence: tt.strict,
				Capability:     tt.snapshot,
			})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if decision.ModeSelected != tt.mode {
				t.Errorf("ModeSelected = %v, want %v", decision.ModeSelected, tt.mode)
			}
			if decision.FallbackUsed != tt.fallback {
				t.Errorf("FallbackUsed = %v, want %v", decision.FallbackUsed, tt.fallback)
			}
			if decision.OutcomeStatus != tt.outcome {
				t.Errorf("OutcomeStatus = %v, want %v", decision.OutcomeStatus, tt.outcome)
			}
			if !decision.AutoInvoked {
				t.Errorf("AutoInvoked = false, want true")
			}
		})
	}
}

func TestEvaluate_UnknownSkillIsConfigError(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Evaluate(Request{
		Skill:        Skill("workflows-wokr"),
		TriggerClass: TriggerRuntimeBug,
	})
	if err == nil {
		t.Fatalf("Evaluate() error = nil, want config error")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
	if !errors.Is(err, ErrUnknownSkill) {
		t.Errorf("errors.Is(err, ErrUnknownSkill) = false, want true")
	}
}

func TestEvaluate_UnknownTriggerClassIsConfigError(t *testing.T) {
	engine := NewEngine(nil)

	_, err := engine.Evaluate(Request{
		Skill:        SkillWorkflowsWork,
		TriggerClass: TriggerClass("runtime-bgu"),
	})
	if err == nil {
		t.Fatalf("Evaluate() error = nil, want config error")
	}
	if !errors.Is(err, ErrUnknownTriggerClass) {
		t.Errorf("errors.Is(err, ErrUnknownTriggerClass) = false, want true")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	engine := NewEngine(nil)
	req := Request{
		Skill:           SkillPerformanceOracle,
		TriggerClass:    TriggerReviewNeedsRuntime,
		ExplicitRequest: false,
		SessionHints:    []string{"verbose"},
		KillSwitchEnv:   "true",
		Capability:      &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
	}

	first, err := engine.Evaluate(req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	second, err := engine.Evaluate(req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Evaluate() not idempotent: %+v vs %+v", first, second)
	}
}

func TestEvaluate_EndToEnd(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("workflows-work runtime-bug auto-routes in core mode", func(t *testing.T) {
		decision, err := engine.Evaluate(Request{
			Skill:        SkillWorkflowsWork,
			TriggerClass: TriggerRuntimeBug,
			Capability:   &Snapshot{CanInstrumentFromBrowser: true, Bootstrap: BootstrapOK},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if decision.RuleID != RuleTriggerMatch {
			t.Errorf("RuleID = %v, want %v", decision.RuleID, RuleTriggerMatch)
		}
		if !decision.AutoInvoked {
			t.Errorf("AutoInvoked = false, want true")
		}
		if decision.ModeSelected != ModeCore {
			t.Errorf("ModeSelected = %v, want %v", decision.ModeSelected, ModeCore)
		}
		if decision.OutcomeStatus != OutcomeSuccess {
			t.Errorf("OutcomeStatus = %v, want %v", decision.OutcomeStatus, OutcomeSuccess)
		}
	})

	t.Run("performance-oracle honors manual-only hint", func(t *testing.T) {
		decision, err := engine.Evaluate(Request{
			Skill:        SkillPerformanceOracle,
			TriggerClass: TriggerReviewNeedsRuntime,
			SessionHints: []string{"manual-only"},
		})
		if err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
		if decision.RuleID != RuleSessionOptOut {
			t.Errorf("RuleID = %v, want %v", decision.RuleID, RuleSessionOptOut)
		}
		if decision.RoutingAttempted {
			t.Errorf("RoutingAttempted = true, want false")
		}
	})
}
