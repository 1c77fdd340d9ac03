package config

import "github.com/VivekJangam126/server-survival-sub000/pkg/models"

// Catalog is the static configuration table the simulation treats as
// frozen input: per-traffic-type profiles, per-service-type specs and
// the survival-mode constants.
type Catalog struct {
	LogLevel string                                    `yaml:"log_level"`
	Traffic  map[models.TrafficType]TrafficProfile     `yaml:"traffic"`
	Services map[models.ServiceType]ServiceSpec        `yaml:"services"`
	Survival Survival                                  `yaml:"survival"`
}

// TrafficProfile describes the reward/score/capacity profile of a traffic type
type TrafficProfile struct {
	Reward         float64 `yaml:"reward"`          // money credited on completion
	Score          int     `yaml:"score"`           // score credited on completion
	CapacityWeight float64 `yaml:"capacity_weight"` // relative processing cost
}

// ServiceSpec describes one placeable service type
type ServiceSpec struct {
	Cost         float64   `yaml:"cost"`           // placement cost
	UpkeepPerSec float64   `yaml:"upkeep_per_sec"` // continuous running cost
	MaxTier      int       `yaml:"max_tier"`
	TierCapacity []int     `yaml:"tier_capacity"` // processing slots per tier, index tier-1
	TierCost     []float64 `yaml:"tier_cost"`     // upgrade cost to reach tier, index tier-1 (tier 1 free)
}

// Milestone permanently raises the traffic ramp once elapsed time passes it
type Milestone struct {
	AtSeconds  float64 `yaml:"at_seconds"`
	Multiplier float64 `yaml:"multiplier"`
}

// SpikeConfig drives the periodic malicious traffic spike
type SpikeConfig struct {
	IntervalSeconds float64 `yaml:"interval_seconds"`
	WarningSeconds  float64 `yaml:"warning_seconds"`
	DurationSeconds float64 `yaml:"duration_seconds"`
	MaliciousShare  float64 `yaml:"malicious_share"` // fraction of the distribution MALICIOUS takes
}

// ShiftConfig drives the scripted traffic-distribution replacement
type ShiftConfig struct {
	IntervalSeconds float64                         `yaml:"interval_seconds"`
	DurationSeconds float64                         `yaml:"duration_seconds"`
	Distribution    map[models.TrafficType]float64  `yaml:"distribution"`
}

// EventConfig drives the random adverse events
type EventConfig struct {
	CheckIntervalSeconds float64 `yaml:"check_interval_seconds"`
	TriggerChance        float64 `yaml:"trigger_chance"`
	DurationSeconds      float64 `yaml:"duration_seconds"`
	CostMultiplier       float64 `yaml:"cost_multiplier"`
	CapacityMultiplier   float64 `yaml:"capacity_multiplier"`
	BurstMultiplier      float64 `yaml:"burst_multiplier"`
}

// Survival holds the survival-mode balance constants
type Survival struct {
	InitialMoney      float64 `yaml:"initial_money"`
	InitialReputation float64 `yaml:"initial_reputation"`

	BaseRPS float64 `yaml:"base_rps"`
	MaxRPS  float64 `yaml:"max_rps"`

	InitialDistribution map[models.TrafficType]float64 `yaml:"initial_distribution"`
	Milestones          []Milestone                    `yaml:"milestones"`

	DegradeThreshold float64 `yaml:"degrade_threshold"` // load above which health degrades
	DegradePerSec    float64 `yaml:"degrade_per_sec"`
	RepairPerSec     float64 `yaml:"repair_per_sec"`

	AutoRepairUpkeepPerSec float64 `yaml:"auto_repair_upkeep_per_sec"`

	CacheHitChance float64 `yaml:"cache_hit_chance"`
	CacheHitBonus  float64 `yaml:"cache_hit_bonus"`

	ReputationSuccess       float64 `yaml:"reputation_success"`
	ReputationFailPenalty   float64 `yaml:"reputation_fail_penalty"`
	ReputationBreachPenalty float64 `yaml:"reputation_breach_penalty"`

	PointsMaliciousBlocked int     `yaml:"points_malicious_blocked"`
	MitigationCost         float64 `yaml:"mitigation_cost"`
	BreachPenalty          float64 `yaml:"breach_penalty"`

	MinPlacementDistance float64 `yaml:"min_placement_distance"`
	RequestSpeed         float64 `yaml:"request_speed"` // grid units per second
	FailureLingerSeconds float64 `yaml:"failure_linger_seconds"`
	BaseProcessSeconds   float64 `yaml:"base_process_seconds"`

	MoneyFloor float64 `yaml:"money_floor"` // game over below this balance

	Spike SpikeConfig `yaml:"spike"`
	Shift ShiftConfig `yaml:"shift"`
	Event EventConfig `yaml:"event"`
}

// TierCapacityFor returns the processing capacity of a service type at a tier
func (s ServiceSpec) TierCapacityFor(tier int) int {
	if tier < 1 || tier > len(s.TierCapacity) {
		return 0
	}
	return s.TierCapacity[tier-1]
}

// TierCostFor returns the cost of upgrading to the given tier
func (s ServiceSpec) TierCostFor(tier int) float64 {
	if tier < 1 || tier > len(s.TierCost) {
		return 0
	}
	return s.TierCost[tier-1]
}
