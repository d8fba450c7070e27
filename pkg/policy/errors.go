package policy

import "errors"

var (
	ErrUnknownSkill        = errors.New("unknown routing skill")
	ErrUnknownTriggerClass = errors.New("unknown trigger class")
)

// ConfigError marks a caller or configuration bug, as opposed to a routing
// outcome. An unknown skill must surface as a ConfigError rather than
// silently resolving to no-route.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	if e == nil || e.Err == nil {
		return "configuration error"
	}
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
