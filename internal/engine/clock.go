package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/VivekJangam126/server-survival-sub000/internal/economy"
	"github.com/VivekJangam126/server-survival-sub000/internal/lifecycle"
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/internal/traffic"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// maxFrameDelta clamps the raw per-frame delta so a suspended process
// does not produce a huge catch-up jump on resume.
const maxFrameDelta = 0.1

// Clock is the fixed top-level loop: it advances time, invokes every
// component in a fixed order and checks the terminal condition. The
// step order must not change; later steps read state earlier steps
// mutate.
type Clock struct {
	catalog *config.Catalog
	state   *models.SimulationState
	reg     *topology.Registry
	gen     *traffic.Generator
	life    *lifecycle.Engine

	timeScale  float64
	lastTick   time.Time
	haveLast   bool
	spawnTimer float64
	stopped    bool
	gameOver   *economy.FailureReport

	notes  []Notification
	logger *slog.Logger
}

// NewClock assembles a fresh simulation for one game
func NewClock(catalog *config.Catalog, seed int64) *Clock {
	sv := catalog.Survival
	state := models.NewSimulationState(sv.InitialMoney, sv.InitialReputation, sv.BaseRPS, sv.InitialDistribution)
	reg := topology.NewRegistry(catalog)
	gen := traffic.NewGenerator(catalog, seed)
	life := lifecycle.NewEngine(catalog, reg, gen)

	return &Clock{
		catalog:   catalog,
		state:     state,
		reg:       reg,
		gen:       gen,
		life:      life,
		timeScale: 1.0,
		logger:    logger.Default,
	}
}

// SetLogger sets the clock's logger and propagates it to components
func (c *Clock) SetLogger(l *slog.Logger) {
	c.logger = l
	c.reg.SetLogger(l)
	c.gen.SetLogger(l)
	c.life.SetLogger(l)
}

// State returns the live simulation state
func (c *Clock) State() *models.SimulationState {
	return c.state
}

// Registry returns the service registry
func (c *Clock) Registry() *topology.Registry {
	return c.reg
}

// Lifecycle returns the request engine
func (c *Clock) Lifecycle() *lifecycle.Engine {
	return c.life
}

// AdoptState replaces the live simulation state. Used by the
// persistence layer after a fully validated snapshot restore; the
// clock restarts paused so the player resumes deliberately.
func (c *Clock) AdoptState(state *models.SimulationState) {
	c.state = state
	c.timeScale = 0
	c.spawnTimer = 0
	c.haveLast = false
	c.stopped = false
	c.gameOver = nil
	c.life.Reset()
}

// GameOverReport returns the failure analysis once the game has ended
func (c *Clock) GameOverReport() *economy.FailureReport {
	return c.gameOver
}

// Stopped reports whether the clock has latched its terminal state
func (c *Clock) Stopped() bool {
	return c.stopped
}

// TimeScale returns the current time scale
func (c *Clock) TimeScale() float64 {
	return c.timeScale
}

// SetTimeScale switches between paused (0), normal (1) and fast (3).
// Scripted-event countdowns run on simulation time, so pausing
// preserves their exact remaining duration.
func (c *Clock) SetTimeScale(scale float64) error {
	switch scale {
	case 0, 1, 3:
		c.timeScale = scale
		return nil
	default:
		return fmt.Errorf("invalid time scale %v (must be 0, 1 or 3)", scale)
	}
}

// Tick advances the simulation to the given wall-clock timestamp.
// It never returns an error and never panics; a stopped clock is a no-op.
func (c *Clock) Tick(now time.Time) {
	if c.stopped {
		return
	}
	if !c.haveLast {
		c.lastTick = now
		c.haveLast = true
		return
	}

	raw := utils.MaxFloat64(now.Sub(c.lastTick).Seconds(), 0)
	c.lastTick = now
	dt := utils.MinFloat64(raw, maxFrameDelta) * c.timeScale

	// 1. advance elapsed time
	c.state.Elapsed += dt

	// 2. service health degradation
	c.reg.DegradeOverloaded(c.state, dt)

	// 3. in-flight request movement and processing
	c.life.Update(c.state, dt)

	// 4. spawn accumulation and RPS ramp
	c.spawn(dt)

	// 5. malicious spike and traffic shift
	c.noteSignals(c.gen.UpdateSpike(c.state))
	c.noteSignals(c.gen.UpdateShift(c.state))

	// 6. random adverse events
	c.noteSignals(c.gen.UpdateEvents(c.state, c.reg))

	// 7. auto-repair healing
	c.reg.ProcessAutoRepair(c.state, dt)

	// 8. continuous upkeep
	economy.ChargeUpkeep(c.catalog, c.state, c.reg, dt)

	// 9. presentation refresh happens outside via Snapshot/Drain

	// 10. terminal condition, latched exactly once
	if !c.state.GameOver && economy.IsGameOver(c.catalog, c.state) {
		c.state.GameOver = true
		c.stopped = true
		c.timeScale = 0
		c.gameOver = economy.AnalyzeFailure(c.catalog, c.state)
		c.note(Notification{Kind: NoteGameOver, Report: c.gameOver})
		c.logger.Info("game over",
			"reason", c.gameOver.Reason,
			"elapsed", c.state.Elapsed,
			"score", c.state.Score.Total)
	}
}

func (c *Clock) spawn(dt float64) {
	if dt <= 0 {
		return
	}
	c.spawnTimer += dt

	effectiveRPS := c.state.CurrentRPS * c.state.Intervention.BurstMultiplier
	interval := traffic.SpawnInterval(effectiveRPS)
	for !math.IsInf(interval, 1) && c.spawnTimer >= interval {
		c.spawnTimer -= interval
		c.life.Spawn(c.state)
	}

	c.gen.AdvanceMilestones(c.state)
	c.gen.RampRPS(c.state)
}

// PlaceService places a service and records the presentation notification
func (c *Clock) PlaceService(t models.ServiceType, pos models.Position) (*topology.Service, error) {
	svc, err := c.reg.CreateService(c.state, t, pos)
	if err != nil {
		return nil, err
	}
	c.note(Notification{Kind: NoteServicePlaced, ServiceID: svc.ID})
	return svc, nil
}

// RemoveService deletes a service and records the notification.
// Requests still queued or processing there take their FAILED
// transition instead of vanishing.
func (c *Clock) RemoveService(id string) error {
	svc, _ := c.reg.Get(id)
	if err := c.reg.DeleteService(c.state, id); err != nil {
		return err
	}
	c.life.FailServiceRequests(c.state, svc)
	c.note(Notification{Kind: NoteServiceDeleted, ServiceID: id})
	return nil
}

// UpgradeService raises a service's tier and records the notification
func (c *Clock) UpgradeService(id string) (*topology.Service, error) {
	svc, err := c.reg.UpgradeService(c.state, id)
	if err != nil {
		return nil, err
	}
	c.note(Notification{Kind: NoteServiceUpgraded, ServiceID: id})
	return svc, nil
}

// Connect creates a directed edge and records the notification
func (c *Clock) Connect(fromID, toID string) error {
	if err := c.reg.CreateConnection(fromID, toID); err != nil {
		return err
	}
	c.note(Notification{Kind: NoteConnected})
	return nil
}

// Disconnect removes a directed edge and records the notification
func (c *Clock) Disconnect(fromID, toID string) error {
	if err := c.reg.DeleteConnection(fromID, toID); err != nil {
		return err
	}
	c.note(Notification{Kind: NoteDisconnected})
	return nil
}

// SetAutoRepair toggles the auto-repair upkeep
func (c *Clock) SetAutoRepair(enabled bool) {
	c.state.AutoRepair = enabled
}
