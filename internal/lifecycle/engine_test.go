package lifecycle

import (
	"testing"

	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/internal/traffic"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

type fixture struct {
	catalog *config.Catalog
	reg     *topology.Registry
	gen     *traffic.Generator
	engine  *Engine
	state   *models.SimulationState
}

func newFixture(t *testing.T, catalog *config.Catalog) *fixture {
	t.Helper()
	if catalog == nil {
		catalog = config.DefaultCatalog()
	}
	sv := catalog.Survival
	state := models.NewSimulationState(100000, sv.InitialReputation, sv.BaseRPS, sv.InitialDistribution)
	reg := topology.NewRegistry(catalog)
	gen := traffic.NewGenerator(catalog, 1)
	return &fixture{
		catalog: catalog,
		reg:     reg,
		gen:     gen,
		engine:  NewEngine(catalog, reg, gen),
		state:   state,
	}
}

func (f *fixture) place(t *testing.T, st models.ServiceType, x, y float64) *topology.Service {
	t.Helper()
	svc, err := f.reg.CreateService(f.state, st, models.Position{X: x, Y: y})
	if err != nil {
		t.Fatalf("place %s: %v", st, err)
	}
	return svc
}

func TestSpawnRoutingFailure(t *testing.T) {
	f := newFixture(t, nil)
	repBefore := f.state.Reputation

	req := f.engine.Spawn(f.state)
	if req != nil {
		t.Fatalf("expected nil request on empty topology, got %v", req.ID)
	}
	if f.state.RoutingFailures != 1 {
		t.Fatalf("expected routing failure recorded, got %d", f.state.RoutingFailures)
	}
	if f.state.Reputation >= repBefore {
		t.Fatalf("routing failure must cost reputation, got %v", f.state.Reputation)
	}
	if len(f.engine.InFlight()) != 0 {
		t.Fatalf("failed spawn must not enter the in-flight set")
	}
}

func TestSpawnRoutesToEntry(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 5, 0)
	if err := f.reg.CreateConnection(models.InternetNodeID, fw.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}

	req := f.engine.Spawn(f.state)
	if req == nil {
		t.Fatalf("expected a spawned request")
	}
	if req.Phase != models.PhaseEnRoute {
		t.Fatalf("expected en_route, got %s", req.Phase)
	}
	if req.TargetID != fw.ID {
		t.Fatalf("expected entry target %s, got %s", fw.ID, req.TargetID)
	}
	if req.Pos != topology.InternetPos {
		t.Fatalf("expected spawn at internet position, got %v", req.Pos)
	}
}

func TestFirewallBlocksMalicious(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 5, 0)
	req := &models.Request{ID: "r1", Type: models.TrafficMalicious, Phase: models.PhaseEnRoute}

	f.engine.arrive(f.state, req, fw)

	if req.Phase != models.PhaseCompleted {
		t.Fatalf("expected blocked request completed, got %s", req.Phase)
	}
	if f.state.Score.MaliciousBlocked == 0 {
		t.Fatalf("expected blocked points awarded")
	}
	if len(fw.Processing) != 0 || len(fw.Queue) != 0 {
		t.Fatalf("blocked requests must not occupy slots")
	}
}

func TestArriveAdmitsAndProcesses(t *testing.T) {
	f := newFixture(t, nil)
	compute := f.place(t, models.ServiceCompute, 5, 0)
	req := &models.Request{ID: "r1", Type: models.TrafficRead, Phase: models.PhaseEnRoute}

	f.engine.arrive(f.state, req, compute)

	if req.Phase != models.PhaseAdmitted {
		t.Fatalf("expected admitted, got %s", req.Phase)
	}
	if _, ok := compute.Processing[req.ID]; !ok {
		t.Fatalf("expected request in processing set")
	}
	want := f.catalog.Survival.BaseProcessSeconds * f.catalog.Traffic[models.TrafficRead].CapacityWeight
	if req.Remaining != want {
		t.Fatalf("expected processing time %v, got %v", want, req.Remaining)
	}
}

func TestArriveFailsOnDisabledOrDead(t *testing.T) {
	f := newFixture(t, nil)
	compute := f.place(t, models.ServiceCompute, 5, 0)

	compute.Disabled = true
	req := &models.Request{ID: "r1", Type: models.TrafficRead, Phase: models.PhaseEnRoute}
	f.engine.arrive(f.state, req, compute)
	if req.Phase != models.PhaseFailed {
		t.Fatalf("expected failure at disabled service, got %s", req.Phase)
	}

	compute.Disabled = false
	compute.Health = 0
	req2 := &models.Request{ID: "r2", Type: models.TrafficRead, Phase: models.PhaseEnRoute}
	f.engine.arrive(f.state, req2, compute)
	if req2.Phase != models.PhaseFailed {
		t.Fatalf("expected failure at dead service, got %s", req2.Phase)
	}
}

func TestDepartAtTerminal(t *testing.T) {
	f := newFixture(t, nil)
	db := f.place(t, models.ServiceRelationalDB, 5, 0)

	req := &models.Request{ID: "r1", Type: models.TrafficWrite, Phase: models.PhaseAdmitted}
	moneyBefore := f.state.Money
	f.engine.depart(f.state, req, db)
	if req.Phase != models.PhaseCompleted {
		t.Fatalf("expected completed at terminal, got %s", req.Phase)
	}
	if f.state.Money <= moneyBefore {
		t.Fatalf("expected reward paid, money %v", f.state.Money)
	}
	if f.state.Score.Database == 0 {
		t.Fatalf("expected database score bucket credited")
	}

	// Malicious traffic reaching a data store is a breach
	bad := &models.Request{ID: "r2", Type: models.TrafficMalicious, Phase: models.PhaseAdmitted}
	repBefore := f.state.Reputation
	f.engine.depart(f.state, bad, db)
	if bad.Phase != models.PhaseFailed {
		t.Fatalf("expected breach marked failed, got %s", bad.Phase)
	}
	if f.state.Reputation >= repBefore {
		t.Fatalf("expected breach reputation penalty")
	}
}

func TestDepartCacheHit(t *testing.T) {
	f := newFixture(t, nil)
	cache := f.place(t, models.ServiceCache, 5, 0)

	req := &models.Request{ID: "r1", Type: models.TrafficRead, Phase: models.PhaseAdmitted, Cached: true}
	moneyBefore := f.state.Money
	f.engine.depart(f.state, req, cache)
	if req.Phase != models.PhaseCompleted {
		t.Fatalf("expected cache hit served at cache, got %s", req.Phase)
	}
	wantReward := f.catalog.Traffic[models.TrafficRead].Reward * (1 + f.catalog.Survival.CacheHitBonus)
	if got := f.state.Money - moneyBefore; got != wantReward {
		t.Fatalf("expected boosted reward %v, got %v", wantReward, got)
	}

	// A miss keeps traveling toward the backing store
	db := f.place(t, models.ServiceRelationalDB, 10, 0)
	if err := f.reg.CreateConnection(cache.ID, db.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}
	miss := &models.Request{ID: "r2", Type: models.TrafficRead, Phase: models.PhaseAdmitted}
	f.engine.depart(f.state, miss, cache)
	if miss.Phase != models.PhaseEnRoute || miss.TargetID != db.ID {
		t.Fatalf("expected miss forwarded to %s, got phase %s target %s", db.ID, miss.Phase, miss.TargetID)
	}
}

func TestDepartDeadEndFails(t *testing.T) {
	f := newFixture(t, nil)
	compute := f.place(t, models.ServiceCompute, 5, 0)

	req := &models.Request{ID: "r1", Type: models.TrafficRead, Phase: models.PhaseAdmitted}
	f.engine.depart(f.state, req, compute)
	if req.Phase != models.PhaseFailed {
		t.Fatalf("expected dead-end failure, got %s", req.Phase)
	}
	if req.LingerFor != f.catalog.Survival.FailureLingerSeconds {
		t.Fatalf("expected failure linger set, got %v", req.LingerFor)
	}
	if len(f.engine.InFlight()) != 1 {
		t.Fatalf("failed request must linger in flight for display")
	}
}

func TestFailAppliesExactlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	req := &models.Request{ID: "r1", Type: models.TrafficRead, Phase: models.PhaseEnRoute}

	f.engine.fail(f.state, req)
	repAfterFirst := f.state.Reputation
	scoreAfterFirst := f.state.Score.Total

	f.engine.fail(f.state, req)
	if f.state.Reputation != repAfterFirst {
		t.Fatalf("second fail must be a no-op, reputation %v want %v", f.state.Reputation, repAfterFirst)
	}
	if f.state.Score.Total != scoreAfterFirst {
		t.Fatalf("second fail must be a no-op, score %d want %d", f.state.Score.Total, scoreAfterFirst)
	}
	if f.state.Failures[models.TrafficRead] != 1 {
		t.Fatalf("expected exactly one failure recorded, got %d", f.state.Failures[models.TrafficRead])
	}
}

func TestUpdateMovesAndArrives(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 3, 0)
	if err := f.reg.CreateConnection(models.InternetNodeID, fw.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}

	req := f.engine.Spawn(f.state)
	if req == nil {
		t.Fatalf("expected spawned request")
	}

	// RequestSpeed 6 units/s across 3 units: arrival within a second
	for i := 0; i < 20 && req.Phase == models.PhaseEnRoute; i++ {
		f.engine.Update(f.state, 0.1)
	}
	if req.Phase == models.PhaseEnRoute {
		t.Fatalf("request never arrived, pos %v", req.Pos)
	}
}

func TestUpdateExpiresTargetlessRequests(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 5, 0)
	if err := f.reg.CreateConnection(models.InternetNodeID, fw.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}

	req := f.engine.Spawn(f.state)
	if req == nil {
		t.Fatalf("expected spawned request")
	}
	if err := f.reg.DeleteService(f.state, fw.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}

	f.engine.Update(f.state, 0.1)
	if req.Phase != models.PhaseFailed {
		t.Fatalf("expected failure when target vanishes, got %s", req.Phase)
	}

	// The failed request lingers briefly, then leaves the in-flight set
	for i := 0; i < 20; i++ {
		f.engine.Update(f.state, 0.1)
	}
	if n := len(f.engine.InFlight()); n != 0 {
		t.Fatalf("expected linger to expire, %d requests still in flight", n)
	}
}

func TestProcessingCompletesAndDrainsQueue(t *testing.T) {
	f := newFixture(t, nil)
	db := f.place(t, models.ServiceRelationalDB, 5, 0)

	active := &models.Request{ID: "active", Type: models.TrafficRead, Phase: models.PhaseAdmitted, Remaining: 0.2}
	db.Processing[active.ID] = active
	waiting := &models.Request{ID: "waiting", Type: models.TrafficRead, Phase: models.PhaseAdmitted}
	db.Queue = append(db.Queue, waiting)

	f.engine.Update(f.state, 0.3)

	if active.Phase != models.PhaseCompleted {
		t.Fatalf("expected active request completed, got %s", active.Phase)
	}
	if _, ok := db.Processing[waiting.ID]; !ok {
		t.Fatalf("expected queued request promoted into the freed slot")
	}
	if len(db.Queue) != 0 {
		t.Fatalf("expected queue drained, %d still waiting", len(db.Queue))
	}
}

func TestFailServiceRequestsOnDeletion(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 5, 0)

	processing := &models.Request{ID: "in-slot", Type: models.TrafficStatic, Phase: models.PhaseEnRoute, Pos: fw.Pos, TargetID: fw.ID}
	f.engine.arrive(f.state, processing, fw)
	if processing.Phase != models.PhaseAdmitted {
		t.Fatalf("setup: expected admitted, got %s", processing.Phase)
	}
	queued := &models.Request{ID: "in-queue", Type: models.TrafficRead, Phase: models.PhaseAdmitted}
	fw.Queue = append(fw.Queue, queued)

	repBefore := f.state.Reputation

	if err := f.reg.DeleteService(f.state, fw.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.engine.FailServiceRequests(f.state, fw)

	for _, req := range []*models.Request{processing, queued} {
		if req.Phase != models.PhaseFailed {
			t.Fatalf("request %s expected failed, got %s", req.ID, req.Phase)
		}
		if req.LingerFor <= 0 {
			t.Fatalf("request %s expected a failure linger, got %v", req.ID, req.LingerFor)
		}
	}
	if got := f.state.Failures[models.TrafficStatic] + f.state.Failures[models.TrafficRead]; got != 2 {
		t.Fatalf("expected 2 failures recorded, got %d", got)
	}
	if f.state.Reputation >= repBefore {
		t.Fatalf("expected reputation penalty, got %v", f.state.Reputation)
	}
	if len(f.engine.InFlight()) != 2 {
		t.Fatalf("expected 2 lingering requests, got %d", len(f.engine.InFlight()))
	}

	for i := 0; i < 20; i++ {
		f.engine.Update(f.state, 0.1)
	}
	if n := len(f.engine.InFlight()); n != 0 {
		t.Fatalf("expected lingers to expire, %d left", n)
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t, nil)
	fw := f.place(t, models.ServiceFirewall, 5, 0)
	if err := f.reg.CreateConnection(models.InternetNodeID, fw.ID); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if req := f.engine.Spawn(f.state); req == nil {
		t.Fatalf("expected spawned request")
	}

	f.engine.Reset()
	if len(f.engine.InFlight()) != 0 {
		t.Fatalf("expected in-flight set cleared")
	}
}
