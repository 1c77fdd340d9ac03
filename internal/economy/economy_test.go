package economy

import (
	"math"
	"testing"

	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

func newTestState(catalog *config.Catalog) *models.SimulationState {
	sv := catalog.Survival
	return models.NewSimulationState(sv.InitialMoney, sv.InitialReputation, sv.BaseRPS, sv.InitialDistribution)
}

func TestApplyMaliciousBlocked(t *testing.T) {
	catalog := config.DefaultCatalog()
	state := newTestState(catalog)
	req := &models.Request{ID: "r1", Type: models.TrafficMalicious}

	Apply(catalog, state, req, models.OutcomeMaliciousBlocked, models.ServiceFirewall)

	sv := catalog.Survival
	if state.Score.MaliciousBlocked != sv.PointsMaliciousBlocked {
		t.Fatalf("expected blocked points %d, got %d", sv.PointsMaliciousBlocked, state.Score.MaliciousBlocked)
	}
	if state.Score.Total != sv.PointsMaliciousBlocked {
		t.Fatalf("expected total %d, got %d", sv.PointsMaliciousBlocked, state.Score.Total)
	}
	if state.Money != sv.InitialMoney-sv.MitigationCost {
		t.Fatalf("expected mitigation cost deducted, money %v", state.Money)
	}
	if state.Finance.Expense[models.ExpenseMitigation] != sv.MitigationCost {
		t.Fatalf("expected mitigation expense recorded, got %v", state.Finance.Expense[models.ExpenseMitigation])
	}
	if state.Reputation != sv.InitialReputation {
		t.Fatalf("blocking must not touch reputation, got %v", state.Reputation)
	}
}

func TestApplyMaliciousPassed(t *testing.T) {
	catalog := config.DefaultCatalog()
	state := newTestState(catalog)
	req := &models.Request{ID: "r1", Type: models.TrafficMalicious}

	Apply(catalog, state, req, models.OutcomeMaliciousPassed, models.ServiceRelationalDB)

	sv := catalog.Survival
	if state.Reputation != sv.InitialReputation-sv.ReputationBreachPenalty {
		t.Fatalf("expected breach reputation penalty, got %v", state.Reputation)
	}
	if state.Money != sv.InitialMoney-sv.BreachPenalty {
		t.Fatalf("expected breach money penalty, got %v", state.Money)
	}
	if state.Failures[models.TrafficMalicious] != 1 {
		t.Fatalf("expected one malicious failure recorded, got %d", state.Failures[models.TrafficMalicious])
	}
	if state.Score.Total != 0 {
		t.Fatalf("breaches must not award score, got %d", state.Score.Total)
	}
}

func TestApplyCompleted(t *testing.T) {
	catalog := config.DefaultCatalog()
	profile := catalog.Traffic[models.TrafficWrite]
	sv := catalog.Survival

	t.Run("at object storage", func(t *testing.T) {
		state := newTestState(catalog)
		state.Reputation = 50
		req := &models.Request{ID: "r1", Type: models.TrafficWrite}

		Apply(catalog, state, req, models.OutcomeCompleted, models.ServiceObjectStorage)

		if state.Money != sv.InitialMoney+profile.Reward {
			t.Fatalf("expected reward %v, money %v", profile.Reward, state.Money)
		}
		if state.Score.Storage != profile.Score {
			t.Fatalf("expected storage score %d, got %d", profile.Score, state.Score.Storage)
		}
		if state.Score.Total != profile.Score {
			t.Fatalf("expected total %d, got %d", profile.Score, state.Score.Total)
		}
		if state.Reputation != 50+sv.ReputationSuccess {
			t.Fatalf("expected reputation bump, got %v", state.Reputation)
		}
		if state.Finance.IncomeCount[models.TrafficWrite] != 1 {
			t.Fatalf("expected income line recorded")
		}
	})

	t.Run("at relational db", func(t *testing.T) {
		state := newTestState(catalog)
		req := &models.Request{ID: "r1", Type: models.TrafficWrite}

		Apply(catalog, state, req, models.OutcomeCompleted, models.ServiceRelationalDB)

		if state.Score.Database != profile.Score {
			t.Fatalf("expected database score %d, got %d", profile.Score, state.Score.Database)
		}
		if state.Score.Storage != 0 {
			t.Fatalf("storage bucket must stay empty, got %d", state.Score.Storage)
		}
	})

	t.Run("cache hit bonus", func(t *testing.T) {
		state := newTestState(catalog)
		req := &models.Request{ID: "r1", Type: models.TrafficWrite, Cached: true}

		Apply(catalog, state, req, models.OutcomeCompleted, models.ServiceCache)

		want := sv.InitialMoney + profile.Reward*(1+sv.CacheHitBonus)
		if math.Abs(state.Money-want) > 1e-9 {
			t.Fatalf("expected boosted reward, money %v want %v", state.Money, want)
		}
	})

	t.Run("reputation capped at 100", func(t *testing.T) {
		state := newTestState(catalog)
		req := &models.Request{ID: "r1", Type: models.TrafficWrite}

		Apply(catalog, state, req, models.OutcomeCompleted, models.ServiceObjectStorage)

		if state.Reputation != 100 {
			t.Fatalf("expected reputation capped at 100, got %v", state.Reputation)
		}
	})
}

func TestApplyFailed(t *testing.T) {
	catalog := config.DefaultCatalog()
	sv := catalog.Survival
	state := newTestState(catalog)
	req := &models.Request{ID: "r1", Type: models.TrafficRead}

	Apply(catalog, state, req, models.OutcomeFailed, "")

	if state.Reputation != sv.InitialReputation-sv.ReputationFailPenalty {
		t.Fatalf("expected fail reputation penalty, got %v", state.Reputation)
	}
	wantScore := -catalog.Traffic[models.TrafficRead].Score / 2
	if state.Score.Total != wantScore {
		t.Fatalf("expected score %d, got %d", wantScore, state.Score.Total)
	}
	if state.Failures[models.TrafficRead] != 1 {
		t.Fatalf("expected failure recorded, got %d", state.Failures[models.TrafficRead])
	}
	if state.Money != sv.InitialMoney {
		t.Fatalf("plain failures must not cost money, got %v", state.Money)
	}
}

func TestChargeUpkeep(t *testing.T) {
	catalog := config.DefaultCatalog()
	state := newTestState(catalog)
	reg := topology.NewRegistry(catalog)
	if _, err := reg.CreateService(state, models.ServiceFirewall, models.Position{X: 5, Y: 5}); err != nil {
		t.Fatalf("setup: %v", err)
	}
	moneyBefore := state.Money

	ChargeUpkeep(catalog, state, reg, 2.0)
	// 0.5/s upkeep for 2s
	if math.Abs(moneyBefore-state.Money-1.0) > 1e-9 {
		t.Fatalf("expected 1.0 upkeep charged, delta %v", moneyBefore-state.Money)
	}

	// Cost-spike events scale upkeep; auto-repair adds its own charge
	state.Intervention.CostMultiplier = 2.0
	state.AutoRepair = true
	moneyBefore = state.Money
	ChargeUpkeep(catalog, state, reg, 1.0)
	want := 0.5*2.0 + catalog.Survival.AutoRepairUpkeepPerSec*2.0
	if math.Abs(moneyBefore-state.Money-want) > 1e-9 {
		t.Fatalf("expected %v charged, delta %v", want, moneyBefore-state.Money)
	}
}

func TestIsGameOver(t *testing.T) {
	catalog := config.DefaultCatalog()

	tests := []struct {
		name       string
		reputation float64
		money      float64
		want       bool
	}{
		{"healthy", 50, 500, false},
		{"reputation gone", 0, 500, true},
		{"reputation negative", -1, 500, true},
		{"deep in debt", 50, -1000, true},
		{"shallow debt survives", 50, -999, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState(catalog)
			state.Reputation = tt.reputation
			state.Money = tt.money
			if got := IsGameOver(catalog, state); got != tt.want {
				t.Fatalf("IsGameOver(rep=%v, money=%v) = %v, want %v", tt.reputation, tt.money, got, tt.want)
			}
		})
	}
}
