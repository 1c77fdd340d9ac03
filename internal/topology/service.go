package topology

import (
	"math"

	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// Service is one placed infrastructure node. Health degrades under
// overload and heals under auto-repair; capacity derives from type and
// tier and may be temporarily reduced by scripted events.
type Service struct {
	ID       string             `json:"id"`
	Type     models.ServiceType `json:"type"`
	Pos      models.Position    `json:"pos"`
	Health   float64            `json:"health"`
	Tier     int                `json:"tier"`
	Disabled bool               `json:"disabled"`

	Queue      []*models.Request          `json:"-"`
	Processing map[string]*models.Request `json:"-"`
	Outbound   []string                   `json:"outbound"`

	baseCost float64
	spec     config.ServiceSpec
}

func newService(id string, t models.ServiceType, pos models.Position, spec config.ServiceSpec) *Service {
	return &Service{
		ID:         id,
		Type:       t,
		Pos:        pos,
		Health:     100,
		Tier:       1,
		Processing: make(map[string]*models.Request),
		baseCost:   spec.Cost,
		spec:       spec,
	}
}

// Capacity returns the current processing capacity, scaled by the
// event capacity multiplier. Never negative; zero while disabled.
func (s *Service) Capacity(capacityMultiplier float64) int {
	if s.Disabled {
		return 0
	}
	base := s.spec.TierCapacityFor(s.Tier)
	scaled := int(math.Floor(float64(base) * capacityMultiplier))
	if scaled < 0 {
		return 0
	}
	return scaled
}

// Load returns processing-set utilization in [0, +inf)
func (s *Service) Load(capacityMultiplier float64) float64 {
	cap := s.Capacity(capacityMultiplier)
	if cap <= 0 {
		return 1.0
	}
	return float64(len(s.Processing)) / float64(cap)
}

// Degrade reduces health while the service runs past the overload threshold
func (s *Service) Degrade(dt, threshold, ratePerSec, capacityMultiplier float64) {
	if s.Disabled {
		return
	}
	if s.Load(capacityMultiplier) <= threshold {
		return
	}
	s.Health = utils.ClampFloat64(s.Health-ratePerSec*dt, 0, 100)
}

// Heal restores health at the given rate, clamped at 100
func (s *Service) Heal(dt, ratePerSec float64) {
	if s.Health >= 100 {
		return
	}
	s.Health = utils.ClampFloat64(s.Health+ratePerSec*dt, 0, 100)
}

// UpkeepPerSec is the continuous running cost of this service
func (s *Service) UpkeepPerSec() float64 {
	return s.spec.UpkeepPerSec
}

// BaseCost is the original placement cost (refund basis)
func (s *Service) BaseCost() float64 {
	return s.baseCost
}

// MaxTier is the highest upgrade level for this service type
func (s *Service) MaxTier() int {
	return s.spec.MaxTier
}

// FailureChance maps utilization to admission-failure probability.
// Failures only begin past 50% utilization and rise linearly to
// certainty at 100%; this curve is the difficulty model of the game.
func FailureChance(load float64) float64 {
	if load <= 0.5 {
		return 0
	}
	return utils.ClampFloat64(2*(load-0.5), 0, 1)
}

func distance(a, b models.Position) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
