package engine

import (
	"github.com/VivekJangam126/server-survival-sub000/internal/economy"
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// ServiceView is the read-only per-service slice of a snapshot
type ServiceView struct {
	ID         string             `json:"id"`
	Type       models.ServiceType `json:"type"`
	Pos        models.Position    `json:"pos"`
	Health     float64            `json:"health"`
	Tier       int                `json:"tier"`
	Disabled   bool               `json:"disabled"`
	Capacity   int                `json:"capacity"`
	Processing int                `json:"processing"`
	Queued     int                `json:"queued"`
	Load       float64            `json:"load"`
}

// RequestView is the read-only per-request slice of a snapshot
type RequestView struct {
	ID     string              `json:"id"`
	Type   models.TrafficType  `json:"type"`
	Phase  models.RequestPhase `json:"phase"`
	Pos    models.Position     `json:"pos"`
	Cached bool                `json:"cached"`
}

// Snapshot is the per-tick read-only view handed to the presentation
// layer. It copies everything it exposes; consumers cannot mutate
// simulation state through it.
type Snapshot struct {
	Money       float64                        `json:"money"`
	Reputation  float64                        `json:"reputation"`
	Score       models.ScoreBoard              `json:"score"`
	Elapsed     float64                        `json:"elapsed"`
	CurrentRPS  float64                        `json:"current_rps"`
	TimeScale   float64                        `json:"time_scale"`
	AutoRepair  bool                           `json:"auto_repair"`
	Distribution map[models.TrafficType]float64 `json:"distribution"`

	Services    []ServiceView         `json:"services"`
	Connections []topology.Connection `json:"connections"`
	Requests    []RequestView         `json:"requests"`

	SpikeActive bool                    `json:"spike_active"`
	ShiftActive bool                    `json:"shift_active"`
	ActiveEvent *models.ActiveEvent     `json:"active_event,omitempty"`
	GameOver    *economy.FailureReport  `json:"game_over,omitempty"`
}

// Snapshot builds the current read-only view
func (c *Clock) Snapshot() Snapshot {
	capMult := c.state.Intervention.CapacityMultiplier

	services := c.reg.All()
	views := make([]ServiceView, 0, len(services))
	for _, svc := range services {
		views = append(views, ServiceView{
			ID:         svc.ID,
			Type:       svc.Type,
			Pos:        svc.Pos,
			Health:     svc.Health,
			Tier:       svc.Tier,
			Disabled:   svc.Disabled,
			Capacity:   svc.Capacity(capMult),
			Processing: len(svc.Processing),
			Queued:     len(svc.Queue),
			Load:       utils.Round(svc.Load(capMult), 3),
		})
	}

	inflight := c.life.InFlight()
	reqs := make([]RequestView, 0, len(inflight))
	for _, req := range inflight {
		reqs = append(reqs, RequestView{
			ID:     req.ID,
			Type:   req.Type,
			Phase:  req.Phase,
			Pos:    req.Pos,
			Cached: req.Cached,
		})
	}

	var activeEvent *models.ActiveEvent
	if ev := c.state.Intervention.Event; ev != nil {
		copied := *ev
		activeEvent = &copied
	}

	return Snapshot{
		Money:        c.state.Money,
		Reputation:   c.state.Reputation,
		Score:        c.state.Score,
		Elapsed:      c.state.Elapsed,
		CurrentRPS:   c.state.CurrentRPS,
		TimeScale:    c.timeScale,
		AutoRepair:   c.state.AutoRepair,
		Distribution: c.state.CloneDistribution(),
		Services:     views,
		Connections:  c.reg.Connections(),
		Requests:     reqs,
		SpikeActive:  c.state.Intervention.SpikeActive,
		ShiftActive:  c.state.Intervention.ShiftActive,
		ActiveEvent:  activeEvent,
		GameOver:     c.gameOver,
	}
}
