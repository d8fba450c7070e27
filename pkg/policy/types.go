package policy

import "fmt"

// TriggerClass is the categorical reason routing might apply to a request.
// Classification of free-form task text into a class happens upstream; the
// engine only consumes the result.
type TriggerClass string

const (
	TriggerRuntimeBug         TriggerClass = "runtime-bug"
	TriggerVisualRegression   TriggerClass = "visual-regression"
	TriggerReproRequired      TriggerClass = "repro-required"
	TriggerReviewNeedsRuntime TriggerClass = "review-needs-runtime"
	TriggerNonRuntime         TriggerClass = "non-runtime"
)

// TriggerClasses lists every known trigger class.
var TriggerClasses = []TriggerClass{
	TriggerRuntimeBug,
	TriggerVisualRegression,
	TriggerReproRequired,
	TriggerReviewNeedsRuntime,
	TriggerNonRuntime,
}

// Valid reports whether the trigger class is a known value.
func (t TriggerClass) Valid() bool {
	for _, known := range TriggerClasses {
		if t == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the trigger class.
func (t TriggerClass) String() string {
	return string(t)
}

// ParseTriggerClass converts a raw string into a TriggerClass.
func ParseTriggerClass(raw string) (TriggerClass, error) {
	tc := TriggerClass(raw)
	if !tc.Valid() {
		return "", &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownTriggerClass, raw)}
	}
	return tc, nil
}

// Skill identifies a requesting skill known to the routing contract.
type Skill string

const (
	SkillWorkflowsPlan       Skill = "workflows-plan"
	SkillWorkflowsWork       Skill = "workflows-work"
	SkillWorkflowsReview     Skill = "workflows-review"
	SkillWorkflowsBrainstorm Skill = "workflows-brainstorm"
	SkillBugReproValidator   Skill = "bug-repro-validator"
	SkillBrowserTestRunner   Skill = "browser-test-runner"
	SkillBrowserAutomation   Skill = "browser-automation"
	SkillSecurityReviewer    Skill = "security-reviewer"
	SkillPerformanceOracle   Skill = "performance-oracle"
)

// Skills lists every known requesting skill.
var Skills = []Skill{
	SkillWorkflowsPlan,
	SkillWorkflowsWork,
	SkillWorkflowsReview,
	SkillWorkflowsBrainstorm,
	SkillBugReproValidator,
	SkillBrowserTestRunner,
	SkillBrowserAutomation,
	SkillSecurityReviewer,
	SkillPerformanceOracle,
}

// Valid reports whether the skill is a known value.
func (s Skill) Valid() bool {
	for _, known := range Skills {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the skill.
func (s Skill) String() string {
	return string(s)
}

// ParseSkill converts a raw string into a Skill.
func ParseSkill(raw string) (Skill, error) {
	s := Skill(raw)
	if !s.Valid() {
		return "", &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownSkill, raw)}
	}
	return s, nil
}

// BootstrapStatus reports how the instrumentation bootstrap ended.
// The zero value means the bootstrap outcome is unknown.
type BootstrapStatus string

const (
	BootstrapOK       BootstrapStatus = "ok"
	BootstrapFallback BootstrapStatus = "fallback"
)

// Snapshot is a point-in-time capability fact gathered by an external probe.
// A nil *Snapshot on a Request means capability is unknown, which is distinct
// from capability known-false.
type Snapshot struct {
	CanInstrumentFromBrowser bool            `json:"canInstrumentFromBrowser"`
	Bootstrap                BootstrapStatus `json:"bootstrapStatus,omitempty"`
}

// Request carries every input the engine needs for one routing decision.
// KillSwitchEnv is the raw environment value; empty means unset, which the
// kill-switch parser treats as enabled.
type Request struct {
	Skill           Skill
	TriggerClass    TriggerClass
	ExplicitRequest bool
	SessionHints    []string
	StrictEvidence  bool
	KillSwitchEnv   string
	Capability      *Snapshot
}
