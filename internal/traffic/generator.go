package traffic

import (
	"log/slog"
	"math"

	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// Generator decides what traffic to create, where it enters the
// topology, and drives the scripted perturbation mechanics.
type Generator struct {
	catalog *config.Catalog
	rng     *utils.RandSource
	logger  *slog.Logger
}

// NewGenerator creates a traffic generator with the given seed
func NewGenerator(catalog *config.Catalog, seed int64) *Generator {
	return &Generator{
		catalog: catalog,
		rng:     utils.NewRandSource(seed),
		logger:  logger.Default,
	}
}

// SetLogger sets the generator's logger
func (g *Generator) SetLogger(l *slog.Logger) {
	g.logger = l
}

// Rand exposes the generator's random source for collaborators that
// must share the same deterministic stream.
func (g *Generator) Rand() *utils.RandSource {
	return g.rng
}

// SelectType draws a traffic type from the current distribution
func (g *Generator) SelectType(state *models.SimulationState) models.TrafficType {
	total := 0.0
	for _, w := range state.Distribution {
		total += w
	}
	if total <= 0 {
		return models.TrafficStatic
	}
	return SelectTypeWithDraw(state.Distribution, g.rng.Float64()*total)
}

// SelectTypeWithDraw resolves a weighted draw against the distribution.
// The draw is a value in [0, totalWeight); the first type whose
// cumulative weight exceeds it wins. Types are walked in the stable
// order of models.AllTrafficTypes so seeded runs reproduce exactly.
func SelectTypeWithDraw(dist map[models.TrafficType]float64, draw float64) models.TrafficType {
	cumulative := 0.0
	for _, t := range models.AllTrafficTypes {
		cumulative += dist[t]
		if draw < cumulative {
			return t
		}
	}
	return models.TrafficStatic
}

// TargetRPS computes the time-dependent spawn-rate target:
// base + log(1 + t/20)*2.2 + t*0.008, scaled by the active milestone
// multiplier and clamped at the configured maximum.
func (g *Generator) TargetRPS(state *models.SimulationState) float64 {
	sv := g.catalog.Survival
	t := state.Elapsed
	target := sv.BaseRPS + math.Log(1+t/20)*2.2 + t*0.008
	target *= g.activeMilestoneMultiplier(state)
	return utils.ClampFloat64(target, 0, sv.MaxRPS)
}

// AdvanceMilestones moves the milestone cursor forward, never back
func (g *Generator) AdvanceMilestones(state *models.SimulationState) {
	ms := g.catalog.Survival.Milestones
	for state.Intervention.MilestoneIndex < len(ms) &&
		state.Elapsed >= ms[state.Intervention.MilestoneIndex].AtSeconds {
		state.Intervention.MilestoneIndex++
		g.logger.Info("traffic milestone reached",
			"index", state.Intervention.MilestoneIndex,
			"multiplier", ms[state.Intervention.MilestoneIndex-1].Multiplier)
	}
}

func (g *Generator) activeMilestoneMultiplier(state *models.SimulationState) float64 {
	idx := state.Intervention.MilestoneIndex
	if idx == 0 {
		return 1.0
	}
	return g.catalog.Survival.Milestones[idx-1].Multiplier
}

// RampRPS smooths currentRPS toward the target after each spawn check
func (g *Generator) RampRPS(state *models.SimulationState) {
	target := g.TargetRPS(state)
	state.CurrentRPS += (target - state.CurrentRPS) * 0.01
	state.CurrentRPS = utils.ClampFloat64(state.CurrentRPS, 0, g.catalog.Survival.MaxRPS)
}

// SpawnInterval returns the seconds between spawns at the effective rate
func SpawnInterval(effectiveRPS float64) float64 {
	if effectiveRPS <= 0 {
		return math.Inf(1)
	}
	return 1.0 / effectiveRPS
}

// SelectEntry picks the entry service for a new request. STATIC
// traffic prefers a CDN entry point, everything else a firewall;
// failing both, a uniform random ingress-connected service. A nil
// result is a routing failure.
func (g *Generator) SelectEntry(reg *topology.Registry, t models.TrafficType) *topology.Service {
	entries := reg.EntryCandidates()
	if len(entries) == 0 {
		return nil
	}

	if t == models.TrafficStatic {
		if svc := firstOfType(entries, models.ServiceCDN); svc != nil {
			return svc
		}
	}
	if svc := firstOfType(entries, models.ServiceFirewall); svc != nil {
		return svc
	}
	return entries[g.rng.Intn(len(entries))]
}

func firstOfType(entries []*topology.Service, t models.ServiceType) *topology.Service {
	for _, svc := range entries {
		if svc.Type == t {
			return svc
		}
	}
	return nil
}
