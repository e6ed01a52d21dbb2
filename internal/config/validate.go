package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if !strings.Contains(c.Primary.URLTemplate, "{sym}") {
		return errors.New("primary.url_template must contain {sym}")
	}
	if c.Primary.Timeout <= 0 {
		return errors.New("primary.timeout must be > 0")
	}
	if c.Primary.Delay < 0 {
		return errors.New("primary.delay must be >= 0")
	}

	switch c.Secondary.Provider {
	case "yahoo", "alpaca":
	default:
		return fmt.Errorf("secondary.provider must be yahoo or alpaca, got %q", c.Secondary.Provider)
	}
	if _, err := time.Parse("2006-01-02", c.Secondary.StartDate); err != nil {
		return fmt.Errorf("secondary.start_date: %w", err)
	}

	if _, err := time.LoadLocation(c.Output.Zone); err != nil {
		return fmt.Errorf("output.zone: %w", err)
	}
	if strings.ContainsAny(c.Output.UnifiedName, `/\`) {
		return fmt.Errorf("output.unified_name must be a bare file name, got %q", c.Output.UnifiedName)
	}

	seen := make(map[string]struct{}, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("instruments[%d].name is required", i)
		}
		if strings.ContainsAny(inst.Name, `/\`) {
			return fmt.Errorf("instruments[%d].name %q must not contain path separators", i, inst.Name)
		}
		if _, dup := seen[inst.Name]; dup {
			return fmt.Errorf("instruments[%d].name %q is duplicated", i, inst.Name)
		}
		seen[inst.Name] = struct{}{}
	}

	return nil
}
