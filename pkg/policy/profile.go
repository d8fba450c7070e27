package policy

import "fmt"

// Profiles maps each known skill to the trigger classes it may auto-route on.
// The table is built once at startup and treated as immutable afterwards; a
// skill with no legitimate auto-route trigger must be absent from the source
// table rather than present with an empty set.
type Profiles struct {
	entries map[Skill]map[TriggerClass]bool
}

// NewProfiles validates a profile table and returns an immutable registry.
// Every declared skill must have a non-empty entry and every trigger class in
// an entry must be a known value.
func NewProfiles(table map[Skill][]TriggerClass) (*Profiles, error) {
	entries := make(map[Skill]map[TriggerClass]bool, len(table))

	for skill, classes := range table {
		if !skill.Valid() {
			return nil, &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownSkill, skill)}
		}
		if len(classes) == 0 {
			return nil, &ConfigError{Err: fmt.Errorf("profile for skill %q is empty; omit the skill instead", skill)}
		}
		set := make(map[TriggerClass]bool, len(classes))
		for _, class := range classes {
			if !class.Valid() {
				return nil, &ConfigError{Err: fmt.Errorf("%w: %q in profile for skill %q", ErrUnknownTriggerClass, class, skill)}
			}
			set[class] = true
		}
		entries[skill] = set
	}

	for _, skill := range Skills {
		if _, ok := entries[skill]; !ok {
			return nil, &ConfigError{Err: fmt.Errorf("profile table missing entry for skill %q", skill)}
		}
	}

	return &Profiles{entries: entries}, nil
}

// DefaultProfiles returns the built-in trigger-profile table.
func DefaultProfiles() *Profiles {
	p, err := NewProfiles(DefaultProfileTable())
	if err != nil {
		// The built-in table covers every declared skill; failing here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return p
}

// DefaultProfileTable returns the built-in table in its raw, serializable form.
func DefaultProfileTable() map[Skill][]TriggerClass {
	return map[Skill][]TriggerClass{
		SkillWorkflowsPlan:       {TriggerReproRequired},
		SkillWorkflowsWork:       {TriggerRuntimeBug, TriggerVisualRegression},
		SkillWorkflowsReview:     {TriggerReviewNeedsRuntime},
		SkillWorkflowsBrainstorm: {TriggerReproRequired},
		SkillBugReproValidator:   {TriggerRuntimeBug, TriggerReproRequired},
		SkillBrowserTestRunner:   {TriggerRuntimeBug, TriggerVisualRegression, TriggerReproRequired},
		SkillBrowserAutomation:   {TriggerRuntimeBug, TriggerVisualRegression, TriggerReproRequired, TriggerReviewNeedsRuntime},
		SkillSecurityReviewer:    {TriggerReviewNeedsRuntime},
		SkillPerformanceOracle:   {TriggerReviewNeedsRuntime, TriggerRuntimeBug},
	}
}

// Matches reports whether the skill's profile includes the trigger class.
// An unknown skill is a caller/config bug and returns an error rather than a
// silent non-match.
func (p *Profiles) Matches(skill Skill, class TriggerClass) (bool, error) {
	set, ok := p.entries[skill]
	if !ok {
		return false, &ConfigError{Err: fmt.Errorf("%w: %q", ErrUnknownSkill, skill)}
	}
	return set[class], nil
}

// Classes returns the trigger classes for a skill in declaration order of the
// TriggerClasses list, for listings and diagnostics.
func (p *Profiles) Classes(skill Skill) []TriggerClass {
	set, ok := p.entries[skill]
	if !ok {
		return nil
	}
	var classes []TriggerClass
	for _, class := range TriggerClasses {
		if set[class] {
			classes = append(classes, class)
		}
	}
	return classes
}
