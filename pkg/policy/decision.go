package policy

// Mode identifies the execution mode selected for an invoked debug workflow.
type Mode string

const (
	ModeCore          Mode = "core"
	ModeEnhanced      Mode = "enhanced"
	ModeTerminalProbe Mode = "terminal-probe"
	ModeNone          Mode = "none"
)

// RuleID labels which precedence rule terminated the evaluation. Downstream
// tooling pattern-matches on these literals; renaming one is a versioned
// contract change.
type RuleID string

const (
	RuleKillSwitch    RuleID = "R1-KILL-SWITCH"
	RuleSessionOptOut RuleID = "R2-SESSION-OPTOUT"
	RuleExplicitRoute RuleID = "R3-EXPLICIT-ROUTE"
	RuleTriggerMatch  RuleID = "R4-TRIGGER-MATCH"
	RuleNoRoute       RuleID = "R5-NO-ROUTE"
)

// KillSwitchState records how the global kill-switch parsed for this call.
type KillSwitchState string

const (
	KillSwitchEnabled  KillSwitchState = "enabled"
	KillSwitchDisabled KillSwitchState = "disabled"
)

// OutcomeStatus summarizes the terminal state of the routing attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomePartial OutcomeStatus = "partial"
	OutcomeBlocked OutcomeStatus = "blocked"
	OutcomeNone    OutcomeStatus = "none"
)

// Decision is the audit trace for one routing call. Field names and
// enumerated values are contractual; callers log the record verbatim.
//
// Decisions are only built through the per-outcome constructors below, so
// inconsistent combinations (fallbackUsed without terminal-probe, a success
// outcome without a mode) cannot be constructed by the engine.
//
// Contract invariant: when ModeSelected is terminal-probe the caller must
// never issue a page-side network call to a debug endpoint; instrumentation
// evidence comes from terminal-level probing only.
type Decision struct {
	TriggerMatched   bool            `json:"triggerMatched"`
	TriggerClass     TriggerClass    `json:"triggerClass"`
	RuleID           RuleID          `json:"ruleId"`
	AutoInvoked      bool            `json:"autoInvoked"`
	ModeSelected     Mode            `json:"modeSelected"`
	FallbackUsed     bool            `json:"fallbackUsed"`
	KillSwitchState  KillSwitchState `json:"killSwitchState"`
	RoutingAttempted bool            `json:"routingAttempted"`
	OutcomeStatus    OutcomeStatus   `json:"outcomeStatus"`
}

// noRouteDecision covers the three short-circuit rules that never attempt
// routing: kill-switch off, session opt-out, and no trigger/explicit match.
func noRouteDecision(rule RuleID, class TriggerClass, killSwitch KillSwitchState) Decision {
	return Decision{
		TriggerMatched:   false,
		TriggerClass:     class,
		RuleID:           rule,
		AutoInvoked:      false,
		ModeSelected:     ModeNone,
		FallbackUsed:     false,
		KillSwitchState:  killSwitch,
		RoutingAttempted: false,
		OutcomeStatus:    OutcomeNone,
	}
}

// blockedDecision models "routing is warranted but capability is unknown".
// The caller must re-run capability probing before proceeding; this is a
// legitimate terminal state, not an error.
func blockedDecision(rule RuleID, class TriggerClass) Decision {
	return Decision{
		TriggerMatched:   true,
		TriggerClass:     class,
		RuleID:           rule,
		AutoInvoked:      false,
		ModeSelected:     ModeNone,
		FallbackUsed:     false,
		KillSwitchState:  KillSwitchEnabled,
		RoutingAttempted: true,
		OutcomeStatus:    OutcomeBlocked,
	}
}

// fallbackDecision selects terminal-probe mode when browser instrumentation
// is unavailable or the bootstrap degraded.
func fallbackDecision(rule RuleID, class TriggerClass) Decision {
	return Decision{
		TriggerMatched:   true,
		TriggerClass:     class,
		RuleID:           rule,
		AutoInvoked:      true,
		ModeSelected:     ModeTerminalProbe,
		FallbackUsed:     true,
		KillSwitchState:  KillSwitchEnabled,
		RoutingAttempted: true,
		OutcomeStatus:    OutcomePartial,
	}
}

// routedDecision is the confirmed-capability path.
func routedDecision(rule RuleID, class TriggerClass, mode Mode) Decision {
	return Decision{
		TriggerMatched:   true,
		TriggerClass:     class,
		RuleID:           rule,
		AutoInvoked:      true,
		ModeSelected:     mode,
		FallbackUsed:     false,
		KillSwitchState:  KillSwitchEnabled,
		RoutingAttempted: true,
		OutcomeStatus:    OutcomeSuccess,
	}
}
