package lifecycle

import (
	"log/slog"
	"math"

	"github.com/VivekJangam126/server-survival-sub000/internal/economy"
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/internal/traffic"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

const arrivalEpsilon = 0.05

// Engine moves requests through the topology: spawn, travel, admission
// against capacity and the load-based failure curve, and a single
// terminal transition per request.
type Engine struct {
	catalog *config.Catalog
	reg     *topology.Registry
	gen     *traffic.Generator

	inflight []*models.Request // en-route plus failure-lingering requests
	logger   *slog.Logger
}

// NewEngine creates a request lifecycle engine
func NewEngine(catalog *config.Catalog, reg *topology.Registry, gen *traffic.Generator) *Engine {
	return &Engine{
		catalog: catalog,
		reg:     reg,
		gen:     gen,
		logger:  logger.Default,
	}
}

// SetLogger sets the engine's logger
func (e *Engine) SetLogger(l *slog.Logger) {
	e.logger = l
}

// Spawn creates one request of the drawn traffic type and routes it
// toward its entry service. With no ingress-connected services the
// request fails immediately as a routing failure.
func (e *Engine) Spawn(state *models.SimulationState) *models.Request {
	t := e.gen.SelectType(state)
	req := &models.Request{
		ID:    utils.GenerateRequestID(),
		Type:  t,
		Phase: models.PhaseSpawned,
		Pos:   topology.InternetPos,
	}

	entry := e.gen.SelectEntry(e.reg, t)
	if entry == nil {
		state.RoutingFailures++
		economy.Apply(e.catalog, state, req, models.OutcomeFailed, "")
		e.logger.Debug("routing failure, no ingress services", "type", t)
		return nil
	}

	req.Phase = models.PhaseEnRoute
	req.TargetID = entry.ID
	e.inflight = append(e.inflight, req)
	return req
}

// Update advances all in-flight requests and every service's
// processing set by dt.
func (e *Engine) Update(state *models.SimulationState, dt float64) {
	e.updateInflight(state, dt)
	e.updateProcessing(state, dt)
	e.drainQueues(state)
}

// updateInflight moves traveling requests and expires failure lingers
func (e *Engine) updateInflight(state *models.SimulationState, dt float64) {
	speed := e.catalog.Survival.RequestSpeed
	kept := e.inflight[:0]

	for _, req := range e.inflight {
		switch req.Phase {
		case models.PhaseFailed:
			req.LingerFor -= dt
			if req.LingerFor > 0 {
				kept = append(kept, req)
			}

		case models.PhaseEnRoute:
			target, ok := e.reg.Get(req.TargetID)
			if !ok {
				// Target deleted mid-flight
				e.fail(state, req)
				kept = append(kept, req)
				continue
			}
			if moveToward(&req.Pos, target.Pos, speed*dt) {
				e.arrive(state, req, target)
				if req.Phase == models.PhaseFailed {
					kept = append(kept, req)
				}
			} else {
				kept = append(kept, req)
			}

		default:
			kept = append(kept, req)
		}
	}
	e.inflight = kept
}

// arrive evaluates admission at the target service
func (e *Engine) arrive(state *models.SimulationState, req *models.Request, svc *topology.Service) {
	sv := e.catalog.Survival
	capMult := state.Intervention.CapacityMultiplier

	if svc.Disabled || svc.Health <= 0 {
		e.fail(state, req)
		return
	}

	// Firewalls stop malicious traffic at the door
	if svc.Type == models.ServiceFirewall && req.Type == models.TrafficMalicious {
		req.Phase = models.PhaseCompleted
		economy.Apply(e.catalog, state, req, models.OutcomeMaliciousBlocked, svc.Type)
		return
	}

	chance := topology.FailureChance(svc.Load(capMult))
	if chance > 0 && e.gen.Rand().Float64() < chance {
		req.Phase = models.PhaseRejected
		e.fail(state, req)
		return
	}

	req.Phase = models.PhaseAdmitted
	if svc.Type == models.ServiceCache && e.gen.Rand().BernoulliBool(sv.CacheHitChance) {
		req.Cached = true
	}

	if len(svc.Processing) < svc.Capacity(capMult) {
		e.startProcessing(svc, req)
	} else {
		svc.Queue = append(svc.Queue, req)
	}
}

func (e *Engine) startProcessing(svc *topology.Service, req *models.Request) {
	profile := e.catalog.Traffic[req.Type]
	req.Remaining = e.catalog.Survival.BaseProcessSeconds * profile.CapacityWeight
	svc.Processing[req.ID] = req
}

// updateProcessing ticks down every processing slot and completes or
// forwards finished requests.
func (e *Engine) updateProcessing(state *models.SimulationState, dt float64) {
	for _, svc := range e.reg.All() {
		var done []*models.Request
		for _, req := range svc.Processing {
			req.Remaining -= dt
			if req.Remaining <= 0 {
				done = append(done, req)
			}
		}
		for _, req := range done {
			delete(svc.Processing, req.ID)
			e.depart(state, req, svc)
		}
	}
}

// depart routes a finished request onward, or terminates it
func (e *Engine) depart(state *models.SimulationState, req *models.Request, svc *topology.Service) {
	// Cache hits are served from the cache itself
	if svc.Type == models.ServiceCache && req.Cached && req.Type != models.TrafficMalicious {
		req.Phase = models.PhaseCompleted
		economy.Apply(e.catalog, state, req, models.OutcomeCompleted, svc.Type)
		return
	}

	if svc.Type.IsTerminal() {
		if req.Type == models.TrafficMalicious {
			req.Phase = models.PhaseFailed
			economy.Apply(e.catalog, state, req, models.OutcomeMaliciousPassed, svc.Type)
			return
		}
		req.Phase = models.PhaseCompleted
		economy.Apply(e.catalog, state, req, models.OutcomeCompleted, svc.Type)
		return
	}

	next := e.nextHop(svc)
	if next == nil {
		e.fail(state, req)
		e.inflight = append(e.inflight, req)
		return
	}

	req.Phase = models.PhaseEnRoute
	req.Pos = svc.Pos
	req.TargetID = next.ID
	e.inflight = append(e.inflight, req)
}

// nextHop picks a random live outbound target
func (e *Engine) nextHop(svc *topology.Service) *topology.Service {
	candidates := e.reg.Outbound(svc.ID)
	live := candidates[:0]
	for _, c := range candidates {
		if !c.Disabled {
			live = append(live, c)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return live[e.gen.Rand().Intn(len(live))]
}

// drainQueues admits queued requests into freed processing slots
func (e *Engine) drainQueues(state *models.SimulationState) {
	capMult := state.Intervention.CapacityMultiplier
	for _, svc := range e.reg.All() {
		for len(svc.Queue) > 0 && len(svc.Processing) < svc.Capacity(capMult) {
			req := svc.Queue[0]
			svc.Queue = svc.Queue[1:]
			e.startProcessing(svc, req)
		}
	}
}

// FailServiceRequests fails every request the service still holds in
// its queue or processing set. Called when a service is deleted, so no
// admitted request is left without its terminal transition.
func (e *Engine) FailServiceRequests(state *models.SimulationState, svc *topology.Service) {
	for _, req := range svc.Processing {
		e.fail(state, req)
		e.inflight = append(e.inflight, req)
	}
	svc.Processing = make(map[string]*models.Request)

	for _, req := range svc.Queue {
		e.fail(state, req)
		e.inflight = append(e.inflight, req)
	}
	svc.Queue = nil
}

// fail applies the single FAILED terminal transition and starts the
// brief failure display linger.
func (e *Engine) fail(state *models.SimulationState, req *models.Request) {
	if req.Phase == models.PhaseFailed {
		return
	}
	economy.Apply(e.catalog, state, req, models.OutcomeFailed, "")
	req.Phase = models.PhaseFailed
	req.LingerFor = e.catalog.Survival.FailureLingerSeconds
}

// InFlight returns a read-only snapshot of traveling requests
func (e *Engine) InFlight() []*models.Request {
	out := make([]*models.Request, len(e.inflight))
	copy(out, e.inflight)
	return out
}

// Reset drops all in-flight requests (game restart)
func (e *Engine) Reset() {
	e.inflight = nil
}

// moveToward advances pos toward target by step, returning true on arrival
func moveToward(pos *models.Position, target models.Position, step float64) bool {
	dx := target.X - pos.X
	dy := target.Y - pos.Y
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist <= step || dist < arrivalEpsilon {
		*pos = target
		return true
	}
	pos.X += dx / dist * step
	pos.Y += dy / dist * step
	return false
}
