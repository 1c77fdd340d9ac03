package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/VivekJangam126/server-survival-sub000/internal/engine"
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

// CurrentVersion is the save-format version written by this build
const CurrentVersion = 2

// SavedService is the persisted shape of one placed service.
// Health and load state are deliberately omitted; they reset on load.
type SavedService struct {
	ID   string             `json:"id"`
	Type models.ServiceType `json:"type"`
	Pos  models.Position    `json:"pos"`
	Tier int                `json:"tier"`
}

// SaveGame is the serializable snapshot of one game
type SaveGame struct {
	Version    int       `json:"version"`
	SavedAt    time.Time `json:"saved_at"`

	Money        float64                        `json:"money"`
	Reputation   float64                        `json:"reputation"`
	Score        models.ScoreBoard              `json:"score"`
	Distribution map[models.TrafficType]float64 `json:"distribution"`
	Elapsed      float64                        `json:"elapsed"`
	CurrentRPS   float64                        `json:"current_rps"`
	AutoRepair   bool                           `json:"auto_repair"`

	Finance *models.FinanceLedger `json:"finance,omitempty"`

	Services    []SavedService        `json:"services"`
	Connections []topology.Connection `json:"connections"`
}

// Capture builds a snapshot of the running simulation
func Capture(c *engine.Clock) *SaveGame {
	state := c.State()
	reg := c.Registry()

	services := reg.All()
	saved := make([]SavedService, 0, len(services))
	for _, svc := range services {
		saved = append(saved, SavedService{
			ID:   svc.ID,
			Type: svc.Type,
			Pos:  svc.Pos,
			Tier: svc.Tier,
		})
	}

	// A spike or shift temporarily replaces the distribution; saving
	// mid-perturbation must persist the player's own weights, not the
	// skewed ones, since restore starts with the perturbation cleared.
	dist := state.CloneDistribution()
	if iv := state.Intervention; iv.SpikeActive && len(iv.SpikeSnapshot) > 0 {
		dist = copyDistribution(iv.SpikeSnapshot)
	} else if iv.ShiftActive && len(iv.ShiftSnapshot) > 0 {
		dist = copyDistribution(iv.ShiftSnapshot)
	}

	finance := state.Finance
	return &SaveGame{
		Version:      CurrentVersion,
		SavedAt:      time.Now().UTC(),
		Money:        state.Money,
		Reputation:   state.Reputation,
		Score:        state.Score,
		Distribution: dist,
		Elapsed:      state.Elapsed,
		CurrentRPS:   state.CurrentRPS,
		AutoRepair:   state.AutoRepair,
		Finance:      &finance,
		Services:     saved,
		Connections:  reg.Connections(),
	}
}

// Decode parses snapshot bytes, migrating known legacy shapes.
// Unknown versions fail loudly; no partial result is returned.
func Decode(data []byte) (*SaveGame, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("corrupt save data: %w", err)
	}

	switch probe.Version {
	case 0, 1:
		return migrateV1(data)
	case CurrentVersion:
		var save SaveGame
		if err := json.Unmarshal(data, &save); err != nil {
			return nil, fmt.Errorf("corrupt v%d save data: %w", CurrentVersion, err)
		}
		if err := validateSave(&save); err != nil {
			return nil, err
		}
		return &save, nil
	default:
		return nil, fmt.Errorf("unsupported save version %d", probe.Version)
	}
}

// saveGameV1 is the legacy shape: a single score total, "kind"/"level"
// service fields and no finance ledger.
type saveGameV1 struct {
	Version      int                            `json:"version"`
	SavedAt      time.Time                      `json:"saved_at"`
	Money        float64                        `json:"money"`
	Reputation   float64                        `json:"reputation"`
	Score        int                            `json:"score"`
	Distribution map[models.TrafficType]float64 `json:"distribution"`
	Elapsed      float64                        `json:"elapsed"`
	Services     []struct {
		ID    string             `json:"id"`
		Kind  models.ServiceType `json:"kind"`
		Pos   models.Position    `json:"pos"`
		Level int                `json:"level"`
	} `json:"services"`
	Connections []topology.Connection `json:"connections"`
}

func migrateV1(data []byte) (*SaveGame, error) {
	var old saveGameV1
	if err := json.Unmarshal(data, &old); err != nil {
		return nil, fmt.Errorf("corrupt legacy save data: %w", err)
	}

	save := &SaveGame{
		Version:      CurrentVersion,
		SavedAt:      old.SavedAt,
		Money:        old.Money,
		Reputation:   old.Reputation,
		Score:        models.ScoreBoard{Total: old.Score},
		Distribution: old.Distribution,
		Elapsed:      old.Elapsed,
		Connections:  old.Connections,
		// Finance absent in v1: reset on load
	}
	for _, svc := range old.Services {
		tier := svc.Level
		if tier < 1 {
			tier = 1
		}
		save.Services = append(save.Services, SavedService{
			ID:   svc.ID,
			Type: svc.Kind,
			Pos:  svc.Pos,
			Tier: tier,
		})
	}
	if err := validateSave(save); err != nil {
		return nil, fmt.Errorf("legacy save migration failed: %w", err)
	}
	return save, nil
}

func validateSave(save *SaveGame) error {
	if len(save.Distribution) == 0 {
		return fmt.Errorf("save has no traffic distribution")
	}
	ids := make(map[string]bool, len(save.Services))
	for _, svc := range save.Services {
		if svc.ID == "" {
			return fmt.Errorf("save contains a service with no id")
		}
		if ids[svc.ID] {
			return fmt.Errorf("save contains duplicate service id %s", svc.ID)
		}
		ids[svc.ID] = true
	}
	for _, conn := range save.Connections {
		if conn.From != models.InternetNodeID && !ids[conn.From] {
			return fmt.Errorf("save connection references unknown service %s", conn.From)
		}
		if !ids[conn.To] {
			return fmt.Errorf("save connection references unknown service %s", conn.To)
		}
	}
	return nil
}

// Restore rebuilds a full simulation from a snapshot. Everything is
// assembled on a fresh clock first; the live game is only replaced by
// the caller once this returns without error, so a bad save never
// leaves partial in-memory state behind.
func Restore(catalog *config.Catalog, seed int64, save *SaveGame) (*engine.Clock, error) {
	clock := engine.NewClock(catalog, seed)
	reg := clock.Registry()

	for _, svc := range save.Services {
		if _, err := reg.RestoreService(svc.ID, svc.Type, svc.Pos, svc.Tier); err != nil {
			return nil, fmt.Errorf("restore service %s: %w", svc.ID, err)
		}
	}
	// Connections rebuilt in saved order through the same validation
	// path as live edits.
	for _, conn := range save.Connections {
		if err := reg.CreateConnection(conn.From, conn.To); err != nil {
			return nil, fmt.Errorf("restore connection %s -> %s: %w", conn.From, conn.To, err)
		}
	}

	sv := catalog.Survival
	state := models.NewSimulationState(save.Money, save.Reputation, sv.BaseRPS, save.Distribution)
	state.Score = save.Score
	state.Elapsed = save.Elapsed
	state.AutoRepair = save.AutoRepair
	if save.CurrentRPS > 0 {
		state.CurrentRPS = save.CurrentRPS
	}
	if save.Finance != nil {
		state.Finance = *save.Finance
		if state.Finance.Income == nil {
			state.Finance = models.NewFinanceLedger()
		}
	}

	// Perturbation timers restart relative to the restored elapsed
	// time; the zero sentinel would make every check interval already
	// overdue and fire a spike without its warning window.
	state.Intervention.NextSpikeCheck = state.Elapsed + sv.Spike.IntervalSeconds
	state.Intervention.NextShift = state.Elapsed + sv.Shift.IntervalSeconds
	state.Intervention.NextEventCheck = state.Elapsed + sv.Event.CheckIntervalSeconds

	clock.AdoptState(state)
	return clock, nil
}

func copyDistribution(dist map[models.TrafficType]float64) map[models.TrafficType]float64 {
	out := make(map[models.TrafficType]float64, len(dist))
	for t, w := range dist {
		out[t] = w
	}
	return out
}
