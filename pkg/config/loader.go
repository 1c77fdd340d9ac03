package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

// LoadCatalog loads and validates a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	cat, err := ParseCatalogYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalogYAML parses and validates catalog YAML
func ParseCatalogYAML(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("yaml unmarshal failed: %w", err)
	}
	if cat.LogLevel == "" {
		cat.LogLevel = "info"
	}
	if err := validateCatalog(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// validateCatalog performs validation on the catalog
func validateCatalog(cat *Catalog) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cat.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", cat.LogLevel)
	}

	if len(cat.Traffic) == 0 {
		return fmt.Errorf("at least one traffic profile must be defined")
	}
	for _, t := range models.AllTrafficTypes {
		profile, ok := cat.Traffic[t]
		if !ok {
			return fmt.Errorf("traffic profile missing for type %s", t)
		}
		if profile.Reward < 0 {
			return fmt.Errorf("traffic %s: reward cannot be negative", t)
		}
		if profile.Score < 0 {
			return fmt.Errorf("traffic %s: score cannot be negative", t)
		}
		if profile.CapacityWeight <= 0 {
			return fmt.Errorf("traffic %s: capacity_weight must be positive", t)
		}
	}

	if len(cat.Services) == 0 {
		return fmt.Errorf("at least one service spec must be defined")
	}
	for _, st := range models.AllServiceTypes {
		spec, ok := cat.Services[st]
		if !ok {
			return fmt.Errorf("service spec missing for type %s", st)
		}
		if spec.Cost <= 0 {
			return fmt.Errorf("service %s: cost must be positive", st)
		}
		if spec.UpkeepPerSec < 0 {
			return fmt.Errorf("service %s: upkeep_per_sec cannot be negative", st)
		}
		if spec.MaxTier <= 0 {
			return fmt.Errorf("service %s: max_tier must be positive", st)
		}
		if len(spec.TierCapacity) != spec.MaxTier {
			return fmt.Errorf("service %s: tier_capacity must have %d entries, got %d",
				st, spec.MaxTier, len(spec.TierCapacity))
		}
		if len(spec.TierCost) != spec.MaxTier {
			return fmt.Errorf("service %s: tier_cost must have %d entries, got %d",
				st, spec.MaxTier, len(spec.TierCost))
		}
		for i, c := range spec.TierCapacity {
			if c <= 0 {
				return fmt.Errorf("service %s: tier %d capacity must be positive", st, i+1)
			}
		}
	}

	return validateSurvival(&cat.Survival)
}

func validateSurvival(s *Survival) error {
	if s.BaseRPS <= 0 {
		return fmt.Errorf("survival: base_rps must be positive")
	}
	if s.MaxRPS < s.BaseRPS {
		return fmt.Errorf("survival: max_rps must be at least base_rps")
	}
	if s.InitialReputation <= 0 {
		return fmt.Errorf("survival: initial_reputation must be positive")
	}
	if s.MoneyFloor >= 0 {
		return fmt.Errorf("survival: money_floor must be negative")
	}

	if err := validateDistribution("initial_distribution", s.InitialDistribution); err != nil {
		return err
	}

	lastAt := 0.0
	lastMult := 1.0
	for i, m := range s.Milestones {
		if m.AtSeconds <= lastAt {
			return fmt.Errorf("survival: milestone %d must come after the previous one", i)
		}
		if m.Multiplier < lastMult {
			return fmt.Errorf("survival: milestone %d multiplier must not regress", i)
		}
		lastAt = m.AtSeconds
		lastMult = m.Multiplier
	}

	if s.DegradeThreshold <= 0 || s.DegradeThreshold > 1 {
		return fmt.Errorf("survival: degrade_threshold must be in (0, 1]")
	}
	if s.RepairPerSec <= 0 {
		return fmt.Errorf("survival: repair_per_sec must be positive")
	}
	if s.CacheHitChance < 0 || s.CacheHitChance > 1 {
		return fmt.Errorf("survival: cache_hit_chance must be in [0, 1]")
	}
	if s.RequestSpeed <= 0 {
		return fmt.Errorf("survival: request_speed must be positive")
	}
	if s.BaseProcessSeconds <= 0 {
		return fmt.Errorf("survival: base_process_seconds must be positive")
	}

	if s.Spike.MaliciousShare < 0 || s.Spike.MaliciousShare > 1 {
		return fmt.Errorf("survival: spike malicious_share must be in [0, 1]")
	}
	if s.Spike.WarningSeconds >= s.Spike.IntervalSeconds {
		return fmt.Errorf("survival: spike warning_seconds must be shorter than interval_seconds")
	}
	if err := validateDistribution("shift distribution", s.Shift.Distribution); err != nil {
		return err
	}
	if s.Event.TriggerChance < 0 || s.Event.TriggerChance > 1 {
		return fmt.Errorf("survival: event trigger_chance must be in [0, 1]")
	}
	if s.Event.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("survival: event check_interval_seconds must be positive")
	}
	return nil
}

func validateDistribution(name string, dist map[models.TrafficType]float64) error {
	if len(dist) == 0 {
		return fmt.Errorf("survival: %s cannot be empty", name)
	}
	total := 0.0
	for t, w := range dist {
		if w < 0 {
			return fmt.Errorf("survival: %s weight for %s cannot be negative", name, t)
		}
		total += w
	}
	if math.Abs(total-1.0) > 1e-6 {
		return fmt.Errorf("survival: %s weights must sum to 1.0, got %f", name, total)
	}
	return nil
}
