package policy

import (
	"fmt"
	"strings"
)

// KillSwitchEnvVar is the environment toggle governing the global kill-switch.
// The engine itself never reads the environment; callers pass the raw value
// through Request.KillSwitchEnv.
const KillSwitchEnvVar = "ROUTEGATE_AUTO_ROUTE"

// killSwitchDisablers is the fixed vocabulary that turns routing off. Any
// other value, including the empty string and outright typos, leaves routing
// enabled (fail-open).
var killSwitchDisablers = map[string]bool{
	"false":    true,
	"0":        true,
	"off":      true,
	"disabled": true,
	"no":       true,
}

// optOutTokens are the session hints that opt a session out of auto-routing.
// Hints are matched as whole tokens after trimming and lowercasing, never as
// substrings.
var optOutTokens = map[string]bool{
	"no-auto-routing":    true,
	"manual-only":        true,
	"skip-browser-debug": true,
}

// Engine evaluates routing requests against an immutable trigger-profile
// table. It is pure and side-effect free: identical inputs always yield an
// identical decision, and concurrent use needs no coordination.
type Engine struct {
	profiles *Profiles
}

// NewEngine creates an engine over the given profile table. A nil table uses
// the built-in defaults.
func NewEngine(profiles *Profiles) *Engine {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Engine{profiles: profiles}
}

// Profiles returns the engine's profile table.
func (e *Engine) Profiles() *Profiles {
	return e.profiles
}

// Evaluate runs the precedence rules in strict order and returns the audit
// decision. The five terminal outcomes are mutually exclusive: kill-switch
// off, session opt-out, no match, capability unknown, capability known.
//
// Errors are reserved for caller/config bugs (unknown skill or trigger
// class); every legitimate input combination maps to a decision.
func (e *Engine) Evaluate(req Request) (Decision, error) {
	// Request validation precedes every rule: a caller/config bug must not
	// masquerade as a routing outcome, even with the kill-switch off.
	if !req.Skill.Valid() {
		return Decision{}, &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownSkill, req.Skill)}
	}
	if !req.TriggerClass.Valid() {
		return Decision{}, &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownTriggerClass, req.TriggerClass)}
	}

	if ParseKillSwitch(req.KillSwitchEnv) == KillSwitchDisabled {
		return noRouteDecision(RuleKillSwitch, req.TriggerClass, KillSwitchDisabled), nil
	}

	if sessionOptedOut(req.SessionHints) {
		return noRouteDecision(RuleSessionOptOut, req.TriggerClass, KillSwitchEnabled), nil
	}

	profileMatched, err := e.profiles.Matches(req.Skill, req.TriggerClass)
	if err != nil {
		return Decision{}, err
	}

	if !req.ExplicitRequest && !profileMatched {
		return noRouteDecision(RuleNoRoute, req.TriggerClass, KillSwitchEnabled), nil
	}

	// Explicit intent takes label precedence over an implicit profile match.
	rule := RuleTriggerMatch
	if req.ExplicitRequest {
		rule = RuleExplicitRoute
	}

	if req.Capability == nil {
		return blockedDecision(rule, req.TriggerClass), nil
	}

	if !req.Capability.CanInstrumentFromBrowser || req.Capability.Bootstrap == BootstrapFallback {
		return fallbackDecision(rule, req.TriggerClass), nil
	}

	mode := ModeCore
	if req.StrictEvidence {
		mode = ModeEnhanced
	}
	return routedDecision(rule, req.TriggerClass, mode), nil
}

// ParseKillSwitch normalizes the raw environment value. Absence or an empty
// string keeps the feature on; only the fixed disabling vocabulary turns it
// off.
func ParseKillSwitch(raw string) KillSwitchState {
	if killSwitchDisablers[strings.ToLower(strings.TrimSpace(raw))] {
		return KillSwitchDisabled
	}
	return KillSwitchEnabled
}

func sessionOptedOut(hints []string) bool {
	for _, hint := range hints {
		if optOutTokens[strings.ToLower(strings.TrimSpace(hint))] {
			return true
		}
	}
	return false
}
