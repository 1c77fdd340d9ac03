package traffic

import (
	"math"
	"testing"

	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

func distEquals(a, b map[models.TrafficType]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if math.Abs(b[k]-v) > 1e-9 {
			return false
		}
	}
	return true
}

func hasSignal(signals []Signal, kind SignalKind) bool {
	for _, s := range signals {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func TestSpikeLifecycle(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)
	original := state.CloneDistribution()

	// Nothing happens far from the first check
	if signals := gen.UpdateSpike(state); len(signals) != 0 {
		t.Fatalf("expected no signals at t=0, got %v", signals)
	}

	// Warning fires inside the warning window
	state.Elapsed = 41
	if signals := gen.UpdateSpike(state); !hasSignal(signals, SignalSpikeWarning) {
		t.Fatalf("expected spike warning at t=41, got %v", signals)
	}

	// Spike starts at the check time and skews toward MALICIOUS
	state.Elapsed = 45
	signals := gen.UpdateSpike(state)
	if !hasSignal(signals, SignalSpikeStarted) {
		t.Fatalf("expected spike start at t=45, got %v", signals)
	}
	if !state.Intervention.SpikeActive {
		t.Fatalf("expected spike active")
	}
	if got := state.Distribution[models.TrafficMalicious]; math.Abs(got-0.6) > 1e-9 {
		t.Fatalf("expected malicious share 0.6, got %v", got)
	}
	total := 0.0
	for _, w := range state.Distribution {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("skewed distribution must sum to 1, got %v", total)
	}

	// Player edits mid-spike are discarded; the pre-spike snapshot wins
	state.Distribution[models.TrafficRead] = 0.9

	state.Elapsed = 45 + catalog.Survival.Spike.DurationSeconds
	signals = gen.UpdateSpike(state)
	if !hasSignal(signals, SignalSpikeEnded) {
		t.Fatalf("expected spike end, got %v", signals)
	}
	if !distEquals(state.Distribution, original) {
		t.Fatalf("expected exact pre-spike distribution restored, got %v", state.Distribution)
	}
	if state.Intervention.SpikeSnapshot != nil {
		t.Fatalf("expected snapshot cleared after restore")
	}

	// Next check is rescheduled a full interval out
	want := state.Elapsed + catalog.Survival.Spike.IntervalSeconds
	if state.Intervention.NextSpikeCheck != want {
		t.Fatalf("expected next check at %v, got %v", want, state.Intervention.NextSpikeCheck)
	}
}

func TestSkewMalicious(t *testing.T) {
	dist := map[models.TrafficType]float64{
		models.TrafficStatic:    0.5,
		models.TrafficRead:      0.45,
		models.TrafficMalicious: 0.05,
	}
	out := skewMalicious(dist, 0.6)
	if math.Abs(out[models.TrafficMalicious]-0.6) > 1e-9 {
		t.Fatalf("expected malicious 0.6, got %v", out[models.TrafficMalicious])
	}
	// Others keep their relative proportions inside the remaining 0.4
	wantStatic := 0.5 / 0.95 * 0.4
	if math.Abs(out[models.TrafficStatic]-wantStatic) > 1e-9 {
		t.Fatalf("expected static %v, got %v", wantStatic, out[models.TrafficStatic])
	}

	allMalicious := skewMalicious(map[models.TrafficType]float64{models.TrafficMalicious: 1}, 0.6)
	if allMalicious[models.TrafficMalicious] != 1.0 {
		t.Fatalf("expected all-malicious fallback, got %v", allMalicious)
	}
}

func TestShiftLifecycle(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)
	original := state.CloneDistribution()

	state.Elapsed = catalog.Survival.Shift.IntervalSeconds
	signals := gen.UpdateShift(state)
	if !hasSignal(signals, SignalShiftStarted) {
		t.Fatalf("expected shift start, got %v", signals)
	}
	if !distEquals(state.Distribution, catalog.Survival.Shift.Distribution) {
		t.Fatalf("expected scripted shift distribution, got %v", state.Distribution)
	}

	state.Elapsed += catalog.Survival.Shift.DurationSeconds
	signals = gen.UpdateShift(state)
	if !hasSignal(signals, SignalShiftEnded) {
		t.Fatalf("expected shift end, got %v", signals)
	}
	if !distEquals(state.Distribution, original) {
		t.Fatalf("expected original distribution restored, got %v", state.Distribution)
	}
}

func TestSpikeDeferredWhileShiftActive(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)
	original := state.CloneDistribution()

	// Shift running across the spike's check time
	state.Intervention.ShiftSnapshot = state.CloneDistribution()
	state.Intervention.ShiftActive = true
	state.Intervention.ShiftEndsAt = 50
	state.Distribution = cloneDist(catalog.Survival.Shift.Distribution)

	state.Elapsed = 45
	if signals := gen.UpdateSpike(state); hasSignal(signals, SignalSpikeStarted) {
		t.Fatalf("spike must not start over an active shift")
	}
	if state.Intervention.SpikeActive {
		t.Fatalf("expected spike inactive during shift")
	}

	// Shift ends, the overdue spike starts and snapshots the player
	// distribution, not the scripted one.
	state.Elapsed = 51
	if signals := gen.UpdateShift(state); !hasSignal(signals, SignalShiftEnded) {
		t.Fatalf("expected shift end at t=51, got %v", signals)
	}
	if signals := gen.UpdateSpike(state); !hasSignal(signals, SignalSpikeStarted) {
		t.Fatalf("expected deferred spike start after shift end")
	}
	if !distEquals(state.Intervention.SpikeSnapshot, original) {
		t.Fatalf("spike snapshot holds scripted weights: %v", state.Intervention.SpikeSnapshot)
	}

	state.Elapsed = state.Intervention.SpikeEndsAt
	gen.UpdateSpike(state)
	if !distEquals(state.Distribution, original) {
		t.Fatalf("expected player distribution restored, got %v", state.Distribution)
	}
}

func TestShiftDeferredWhileSpikeActive(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)

	state.Intervention.SpikeSnapshot = state.CloneDistribution()
	state.Intervention.SpikeActive = true
	state.Intervention.SpikeEndsAt = 120
	state.Distribution = skewMalicious(state.Distribution, catalog.Survival.Spike.MaliciousShare)

	state.Elapsed = catalog.Survival.Shift.IntervalSeconds
	if signals := gen.UpdateShift(state); hasSignal(signals, SignalShiftStarted) {
		t.Fatalf("shift must not start over an active spike")
	}
	if state.Intervention.ShiftActive {
		t.Fatalf("expected shift inactive during spike")
	}
}

func TestEventLifecycle(t *testing.T) {
	catalog := config.DefaultCatalog()
	catalog.Survival.Event.TriggerChance = 1.0 // force the trigger roll
	gen := NewGenerator(catalog, 3)
	state := newTestState(catalog)
	state.Money = 100000
	reg := topology.NewRegistry(catalog)
	if _, err := reg.CreateService(state, models.ServiceCompute, models.Position{X: 5, Y: 5}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	state.Elapsed = catalog.Survival.Event.CheckIntervalSeconds
	signals := gen.UpdateEvents(state, reg)
	if !hasSignal(signals, SignalEventStarted) {
		t.Fatalf("expected event start, got %v", signals)
	}
	event := state.Intervention.Event
	if event == nil {
		t.Fatalf("expected active event")
	}

	// A second event never starts while one is running
	state.Elapsed += catalog.Survival.Event.CheckIntervalSeconds
	if signals := gen.UpdateEvents(state, reg); hasSignal(signals, SignalEventStarted) {
		t.Fatalf("expected no concurrent event, got %v", signals)
	}
	if state.Intervention.Event != event {
		t.Fatalf("active event replaced while running")
	}

	// Expiry reverts the side effect exactly
	state.Elapsed = event.EndsAt
	signals = gen.UpdateEvents(state, reg)
	if !hasSignal(signals, SignalEventEnded) {
		t.Fatalf("expected event end, got %v", signals)
	}
	iv := state.Intervention
	if iv.Event != nil {
		t.Fatalf("expected event cleared")
	}
	if iv.CostMultiplier != 1.0 || iv.CapacityMultiplier != 1.0 || iv.BurstMultiplier != 1.0 {
		t.Fatalf("expected all multipliers reverted, got cost=%v cap=%v burst=%v",
			iv.CostMultiplier, iv.CapacityMultiplier, iv.BurstMultiplier)
	}
	for _, svc := range reg.All() {
		if svc.Disabled {
			t.Fatalf("expected all services re-enabled, %s still disabled", svc.ID)
		}
	}
}

func TestEventRevertTable(t *testing.T) {
	catalog := config.DefaultCatalog()
	ev := catalog.Survival.Event

	tests := []struct {
		name  string
		kind  models.EventKind
		apply func(iv *models.Intervention)
		check func(t *testing.T, iv *models.Intervention)
	}{
		{
			name:  "cost spike",
			kind:  models.EventCostSpike,
			apply: func(iv *models.Intervention) { iv.CostMultiplier = ev.CostMultiplier },
			check: func(t *testing.T, iv *models.Intervention) {
				if iv.CostMultiplier != 1.0 {
					t.Fatalf("cost multiplier not reverted: %v", iv.CostMultiplier)
				}
			},
		},
		{
			name:  "capacity drop",
			kind:  models.EventCapacityDrop,
			apply: func(iv *models.Intervention) { iv.CapacityMultiplier = ev.CapacityMultiplier },
			check: func(t *testing.T, iv *models.Intervention) {
				if iv.CapacityMultiplier != 1.0 {
					t.Fatalf("capacity multiplier not reverted: %v", iv.CapacityMultiplier)
				}
			},
		},
		{
			name:  "traffic burst",
			kind:  models.EventTrafficBurst,
			apply: func(iv *models.Intervention) { iv.BurstMultiplier = ev.BurstMultiplier },
			check: func(t *testing.T, iv *models.Intervention) {
				if iv.BurstMultiplier != 1.0 {
					t.Fatalf("burst multiplier not reverted: %v", iv.BurstMultiplier)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(catalog, 1)
			state := newTestState(catalog)
			reg := topology.NewRegistry(catalog)

			state.Intervention.Event = &models.ActiveEvent{Kind: tt.kind, EndsAt: 10}
			tt.apply(&state.Intervention)

			state.Elapsed = 10
			gen.UpdateEvents(state, reg)
			tt.check(t, &state.Intervention)
		})
	}
}

func TestEventOutageRevertReenables(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)
	reg := topology.NewRegistry(catalog)
	svc, err := reg.CreateService(state, models.ServiceCompute, models.Position{X: 5, Y: 5})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	svc.Disabled = true
	state.Intervention.Event = &models.ActiveEvent{
		Kind:      models.EventOutage,
		EndsAt:    10,
		ServiceID: svc.ID,
	}

	state.Elapsed = 10
	gen.UpdateEvents(state, reg)
	if svc.Disabled {
		t.Fatalf("expected outage target re-enabled")
	}
}

func TestEventCountdownRunsOnSimTime(t *testing.T) {
	catalog := config.DefaultCatalog()
	gen := NewGenerator(catalog, 1)
	state := newTestState(catalog)
	reg := topology.NewRegistry(catalog)

	state.Intervention.Event = &models.ActiveEvent{Kind: models.EventCostSpike, EndsAt: 50}
	state.Intervention.CostMultiplier = 2.0
	state.Elapsed = 30

	// Elapsed does not move while paused, so arbitrarily many update
	// calls leave the event untouched.
	for i := 0; i < 10; i++ {
		gen.UpdateEvents(state, reg)
	}
	if state.Intervention.Event == nil {
		t.Fatalf("event expired without simulation time passing")
	}
	if state.Intervention.CostMultiplier != 2.0 {
		t.Fatalf("multiplier changed without simulation time passing")
	}
}
