package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

func validate(c *Config) error {
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.WaitForResults < 0 {
		return fmt.Errorf("wait for results must be >= 0")
	}
	if c.MaxAdsPerNiche <= 0 || c.MaxAdsPerNiche > DefaultMaxAdsCap {
		return fmt.Errorf("max ads per niche must be between 1 and %d", DefaultMaxAdsCap)
	}
	if c.ScrollStep <= 0 || c.MaxScrollSteps <= 0 {
		return fmt.Errorf("scroll step and max scroll steps must be > 0")
	}
	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", c.Schedule, err)
	}
	if len(c.Niches) == 0 {
		return fmt.Errorf("at least one niche is required")
	}
	switch c.CatalogDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("unsupported catalog driver %q (must be sqlite or pgx)", c.CatalogDriver)
	}
	return nil
}
