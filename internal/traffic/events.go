package traffic

import (
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

// SignalKind identifies a perturbation transition surfaced to the
// presentation layer after the tick.
type SignalKind string

const (
	SignalSpikeWarning SignalKind = "spike_warning"
	SignalSpikeStarted SignalKind = "spike_started"
	SignalSpikeEnded   SignalKind = "spike_ended"
	SignalShiftStarted SignalKind = "shift_started"
	SignalShiftEnded   SignalKind = "shift_ended"
	SignalEventStarted SignalKind = "event_started"
	SignalEventEnded   SignalKind = "event_ended"
)

// Signal is one perturbation transition that happened during a tick
type Signal struct {
	Kind      SignalKind       `json:"kind"`
	Event     models.EventKind `json:"event,omitempty"`
	ServiceID string           `json:"service_id,omitempty"`
}

// UpdateSpike drives the periodic malicious traffic spike. The
// pre-spike distribution is snapshotted before mutation and that exact
// snapshot is restored afterward, so player-adjusted weights survive.
func (g *Generator) UpdateSpike(state *models.SimulationState) []Signal {
	sv := g.catalog.Survival.Spike
	iv := &state.Intervention
	var signals []Signal

	if iv.NextSpikeCheck == 0 {
		iv.NextSpikeCheck = sv.IntervalSeconds
	}

	if iv.SpikeActive {
		if state.Elapsed >= iv.SpikeEndsAt {
			state.Distribution = cloneDist(iv.SpikeSnapshot)
			iv.SpikeSnapshot = nil
			iv.SpikeActive = false
			iv.NextSpikeCheck = state.Elapsed + sv.IntervalSeconds
			iv.SpikeWarnedAt = 0
			signals = append(signals, Signal{Kind: SignalSpikeEnded})
			g.logger.Info("malicious spike ended", "elapsed", state.Elapsed)
		}
		return signals
	}

	if iv.SpikeWarnedAt == 0 && state.Elapsed >= iv.NextSpikeCheck-sv.WarningSeconds {
		iv.SpikeWarnedAt = state.Elapsed
		signals = append(signals, Signal{Kind: SignalSpikeWarning})
		g.logger.Warn("malicious spike incoming", "in_seconds", iv.NextSpikeCheck-state.Elapsed)
	}

	// One perturbation at a time: starting a spike over a shift would
	// snapshot the scripted distribution and restore it as if it were
	// the player's. The overdue check stays pending until the shift ends.
	if state.Elapsed >= iv.NextSpikeCheck && !iv.ShiftActive {
		iv.SpikeSnapshot = state.CloneDistribution()
		state.Distribution = skewMalicious(state.Distribution, sv.MaliciousShare)
		iv.SpikeActive = true
		iv.SpikeEndsAt = state.Elapsed + sv.DurationSeconds
		signals = append(signals, Signal{Kind: SignalSpikeStarted})
		g.logger.Warn("malicious spike started",
			"share", sv.MaliciousShare, "until", iv.SpikeEndsAt)
	}
	return signals
}

// skewMalicious renormalizes the distribution so MALICIOUS takes the
// given share and every other type is proportionally rescaled to fill
// the remainder.
func skewMalicious(dist map[models.TrafficType]float64, share float64) map[models.TrafficType]float64 {
	out := make(map[models.TrafficType]float64, len(dist))
	othersTotal := 0.0
	for t, w := range dist {
		if t != models.TrafficMalicious {
			othersTotal += w
		}
	}
	out[models.TrafficMalicious] = share
	if othersTotal <= 0 {
		out[models.TrafficMalicious] = 1.0
		return out
	}
	for t, w := range dist {
		if t == models.TrafficMalicious {
			continue
		}
		out[t] = w / othersTotal * (1 - share)
	}
	return out
}

// UpdateShift drives the scripted traffic-distribution replacement,
// with the same snapshot/restore discipline as the spike.
func (g *Generator) UpdateShift(state *models.SimulationState) []Signal {
	sv := g.catalog.Survival.Shift
	iv := &state.Intervention
	var signals []Signal

	if iv.NextShift == 0 {
		iv.NextShift = sv.IntervalSeconds
	}

	if iv.ShiftActive {
		if state.Elapsed >= iv.ShiftEndsAt {
			state.Distribution = cloneDist(iv.ShiftSnapshot)
			iv.ShiftSnapshot = nil
			iv.ShiftActive = false
			iv.NextShift = state.Elapsed + sv.IntervalSeconds
			signals = append(signals, Signal{Kind: SignalShiftEnded})
			g.logger.Info("traffic shift ended", "elapsed", state.Elapsed)
		}
		return signals
	}

	if state.Elapsed >= iv.NextShift && !iv.SpikeActive {
		iv.ShiftSnapshot = state.CloneDistribution()
		state.Distribution = cloneDist(sv.Distribution)
		iv.ShiftActive = true
		iv.ShiftEndsAt = state.Elapsed + sv.DurationSeconds
		signals = append(signals, Signal{Kind: SignalShiftStarted})
		g.logger.Info("traffic shift started", "until", iv.ShiftEndsAt)
	}
	return signals
}

// UpdateEvents drives the random adverse events: every check interval
// a trigger-chance roll may start one event; its side effect is
// exactly reverted when the duration elapses. Only one event runs at a
// time. Countdowns are tracked in simulation time, so a paused clock
// preserves exact remaining duration.
func (g *Generator) UpdateEvents(state *models.SimulationState, reg *topology.Registry) []Signal {
	sv := g.catalog.Survival.Event
	iv := &state.Intervention
	var signals []Signal

	if iv.NextEventCheck == 0 {
		iv.NextEventCheck = sv.CheckIntervalSeconds
	}

	if iv.Event != nil {
		if state.Elapsed >= iv.Event.EndsAt {
			g.revertEvent(state, reg)
			signals = append(signals, Signal{Kind: SignalEventEnded})
			iv.NextEventCheck = state.Elapsed + sv.CheckIntervalSeconds
		}
		return signals
	}

	if state.Elapsed < iv.NextEventCheck {
		return signals
	}
	iv.NextEventCheck = state.Elapsed + sv.CheckIntervalSeconds

	if !g.rng.BernoulliBool(sv.TriggerChance) {
		return signals
	}

	kinds := []models.EventKind{
		models.EventCostSpike,
		models.EventCapacityDrop,
		models.EventTrafficBurst,
		models.EventOutage,
	}
	kind := kinds[g.rng.Intn(len(kinds))]

	event := &models.ActiveEvent{
		Kind:      kind,
		StartedAt: state.Elapsed,
		EndsAt:    state.Elapsed + sv.DurationSeconds,
	}

	switch kind {
	case models.EventCostSpike:
		event.Multiplier = sv.CostMultiplier
		iv.CostMultiplier = sv.CostMultiplier
	case models.EventCapacityDrop:
		event.Multiplier = sv.CapacityMultiplier
		iv.CapacityMultiplier = sv.CapacityMultiplier
	case models.EventTrafficBurst:
		event.Multiplier = sv.BurstMultiplier
		iv.BurstMultiplier = sv.BurstMultiplier
	case models.EventOutage:
		svc := reg.RandomNonFirewall(g.rng)
		if svc == nil {
			return signals
		}
		svc.Disabled = true
		event.ServiceID = svc.ID
	}

	iv.Event = event
	signals = append(signals, Signal{Kind: SignalEventStarted, Event: kind, ServiceID: event.ServiceID})
	g.logger.Warn("adverse event started", "kind", kind, "until", event.EndsAt, "service", event.ServiceID)
	return signals
}

// revertEvent undoes the active event's side effect exactly
func (g *Generator) revertEvent(state *models.SimulationState, reg *topology.Registry) {
	iv := &state.Intervention
	event := iv.Event
	if event == nil {
		return
	}

	switch event.Kind {
	case models.EventCostSpike:
		iv.CostMultiplier = 1.0
	case models.EventCapacityDrop:
		iv.CapacityMultiplier = 1.0
	case models.EventTrafficBurst:
		iv.BurstMultiplier = 1.0
	case models.EventOutage:
		if svc, ok := reg.Get(event.ServiceID); ok {
			svc.Disabled = false
		}
	}

	iv.Event = nil
	g.logger.Info("adverse event ended", "kind", event.Kind)
}

func cloneDist(dist map[models.TrafficType]float64) map[models.TrafficType]float64 {
	out := make(map[models.TrafficType]float64, len(dist))
	for k, v := range dist {
		out[k] = v
	}
	return out
}
