// internal/game/config.go
package game

import (
	"fmt"
	"time"
)

// MatchConfig defines per-match settings supplied at creation time.
type MatchConfig struct {
	TargetScore    int    `json:"targetScore"`    // cumulative team score that ends the match; default 41
	TurnTimeoutSec int    `json:"turnTimeoutSec"` // seconds before a pending turn is auto-resolved; default 60
	BeginnerMode   bool   `json:"beginnerMode"`   // doubles the turn timeout for every player
	GraceSec       int    `json:"graceSec"`       // seconds a disconnected seat is held before bot conversion; default 120
	BotSkill       string `json:"botSkill"`       // skill used when a seat converts to a bot; default medium
	BotDelayMs     int    `json:"botDelayMs"`     // artificial think time before a bot acts
}

// DefaultMatchConfig returns the standard ruleset.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TargetScore:    41,
		TurnTimeoutSec: 60,
		BeginnerMode:   false,
		GraceSec:       120,
		BotSkill:       "medium",
		BotDelayMs:     600,
	}
}

// TurnTimeout converts the configured timeout to a duration, doubled in
// beginner mode. Zero disables turn timers entirely.
func (c MatchConfig) TurnTimeout() time.Duration {
	d := time.Duration(c.TurnTimeoutSec) * time.Second
	if c.BeginnerMode {
		d *= 2
	}
	return d
}

// GraceWindow converts the configured grace period to a duration.
func (c MatchConfig) GraceWindow() time.Duration {
	return time.Duration(c.GraceSec) * time.Second
}

// Update applies the provided overrides onto the config. Keys that are
// absent or nil keep their current value.
func (c *MatchConfig) Update(overrides map[string]interface{}) error {
	var ok bool

	assignBool := func(field *bool, key string) error {
		if val, exists := overrides[key]; exists && val != nil {
			*field, ok = val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal int) error {
		if val, exists := overrides[key]; exists && val != nil {
			// JSON numbers decode as float64.
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("invalid type for %s", key)
			}
			if *field < minVal {
				return fmt.Errorf("%s must be at least %d", key, minVal)
			}
		}
		return nil
	}

	assignString := func(field *string, key string) error {
		if val, exists := overrides[key]; exists && val != nil {
			*field, ok = val.(string)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	if err := assignInt(&c.TargetScore, "targetScore", 1); err != nil {
		return err
	}
	if err := assignInt(&c.TurnTimeoutSec, "turnTimeoutSec", 0); err != nil {
		return err
	}
	if err := assignBool(&c.BeginnerMode, "beginnerMode"); err != nil {
		return err
	}
	if err := assignInt(&c.GraceSec, "graceSec", 0); err != nil {
		return err
	}
	if err := assignString(&c.BotSkill, "botSkill"); err != nil {
		return err
	}
	if err := assignInt(&c.BotDelayMs, "botDelayMs", 0); err != nil {
		return err
	}
	return nil
}
