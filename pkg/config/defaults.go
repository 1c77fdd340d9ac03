package config

import "github.com/VivekJangam126/server-survival-sub000/pkg/models"

// DefaultCatalog returns the built-in balance table used when no
// catalog file is supplied.
func DefaultCatalog() *Catalog {
	return &Catalog{
		LogLevel: "info",
		Traffic: map[models.TrafficType]TrafficProfile{
			models.TrafficStatic:    {Reward: 5, Score: 10, CapacityWeight: 0.5},
			models.TrafficRead:      {Reward: 8, Score: 10, CapacityWeight: 1.0},
			models.TrafficWrite:     {Reward: 12, Score: 15, CapacityWeight: 1.5},
			models.TrafficUpload:    {Reward: 15, Score: 15, CapacityWeight: 2.0},
			models.TrafficSearch:    {Reward: 10, Score: 12, CapacityWeight: 1.8},
			models.TrafficMalicious: {Reward: 0, Score: 0, CapacityWeight: 1.0},
		},
		Services: map[models.ServiceType]ServiceSpec{
			models.ServiceFirewall: {
				Cost: 150, UpkeepPerSec: 0.5, MaxTier: 3,
				TierCapacity: []int{8, 14, 22}, TierCost: []float64{0, 120, 220},
			},
			models.ServiceLoadBalancer: {
				Cost: 200, UpkeepPerSec: 0.6, MaxTier: 3,
				TierCapacity: []int{10, 18, 30}, TierCost: []float64{0, 150, 280},
			},
			models.ServiceCompute: {
				Cost: 250, UpkeepPerSec: 0.8, MaxTier: 3,
				TierCapacity: []int{6, 12, 20}, TierCost: []float64{0, 180, 320},
			},
			models.ServiceRelationalDB: {
				Cost: 400, UpkeepPerSec: 1.0, MaxTier: 3,
				TierCapacity: []int{5, 9, 15}, TierCost: []float64{0, 250, 450},
			},
			models.ServiceObjectStorage: {
				Cost: 300, UpkeepPerSec: 0.7, MaxTier: 3,
				TierCapacity: []int{8, 14, 24}, TierCost: []float64{0, 200, 360},
			},
			models.ServiceCache: {
				Cost: 220, UpkeepPerSec: 0.5, MaxTier: 3,
				TierCapacity: []int{12, 20, 34}, TierCost: []float64{0, 160, 300},
			},
			models.ServiceQueue: {
				Cost: 260, UpkeepPerSec: 0.6, MaxTier: 3,
				TierCapacity: []int{10, 18, 28}, TierCost: []float64{0, 170, 310},
			},
			models.ServiceCDN: {
				Cost: 350, UpkeepPerSec: 0.9, MaxTier: 3,
				TierCapacity: []int{15, 26, 40}, TierCost: []float64{0, 220, 400},
			},
		},
		Survival: Survival{
			InitialMoney:      1000,
			InitialReputation: 100,

			BaseRPS: 1.5,
			MaxRPS:  30,

			InitialDistribution: map[models.TrafficType]float64{
				models.TrafficStatic:    0.30,
				models.TrafficRead:      0.30,
				models.TrafficWrite:     0.15,
				models.TrafficUpload:    0.08,
				models.TrafficSearch:    0.12,
				models.TrafficMalicious: 0.05,
			},
			Milestones: []Milestone{
				{AtSeconds: 60, Multiplier: 1.2},
				{AtSeconds: 150, Multiplier: 1.5},
				{AtSeconds: 300, Multiplier: 2.0},
				{AtSeconds: 600, Multiplier: 3.0},
			},

			DegradeThreshold: 0.8,
			DegradePerSec:    4,
			RepairPerSec:     5,

			AutoRepairUpkeepPerSec: 2,

			CacheHitChance: 0.35,
			CacheHitBonus:  0.25,

			ReputationSuccess:       0.1,
			ReputationFailPenalty:   1.0,
			ReputationBreachPenalty: 2.0,

			PointsMaliciousBlocked: 15,
			MitigationCost:         5,
			BreachPenalty:          100,

			MinPlacementDistance: 2.0,
			RequestSpeed:         6.0,
			FailureLingerSeconds: 0.8,
			BaseProcessSeconds:   0.4,

			MoneyFloor: -1000,

			Spike: SpikeConfig{
				IntervalSeconds: 45,
				WarningSeconds:  5,
				DurationSeconds: 12,
				MaliciousShare:  0.6,
			},
			Shift: ShiftConfig{
				IntervalSeconds: 90,
				DurationSeconds: 20,
				Distribution: map[models.TrafficType]float64{
					models.TrafficStatic:    0.10,
					models.TrafficRead:      0.15,
					models.TrafficWrite:     0.35,
					models.TrafficUpload:    0.25,
					models.TrafficSearch:    0.10,
					models.TrafficMalicious: 0.05,
				},
			},
			Event: EventConfig{
				CheckIntervalSeconds: 20,
				TriggerChance:        0.3,
				DurationSeconds:      30,
				CostMultiplier:       2.0,
				CapacityMultiplier:   0.5,
				BurstMultiplier:      2.0,
			},
		},
	}
}
