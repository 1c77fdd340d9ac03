package economy

import (
	"github.com/VivekJangam126/server-survival-sub000/internal/topology"
	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// Apply converts one request outcome into money/reputation/score
// deltas on the shared state. destType is the service type where the
// request terminated (zero value when it never reached one).
//
// Pure state arithmetic: no call here can fail.
func Apply(catalog *config.Catalog, state *models.SimulationState, req *models.Request, outcome models.RequestOutcome, destType models.ServiceType) {
	sv := catalog.Survival
	profile := catalog.Traffic[req.Type]

	switch outcome {
	case models.OutcomeMaliciousBlocked:
		state.Score.MaliciousBlocked += sv.PointsMaliciousBlocked
		state.Score.Total += sv.PointsMaliciousBlocked
		state.Money -= sv.MitigationCost
		state.Finance.AddExpense(models.ExpenseMitigation, sv.MitigationCost)

	case models.OutcomeMaliciousPassed:
		state.Reputation -= sv.ReputationBreachPenalty
		state.Failures[models.TrafficMalicious]++
		state.Money -= sv.BreachPenalty
		state.Finance.AddExpense(models.ExpenseBreach, sv.BreachPenalty)

	case models.OutcomeCompleted:
		reward := profile.Reward
		if req.Cached {
			reward *= 1 + sv.CacheHitBonus
		}
		state.Money += reward
		state.Finance.AddIncome(req.Type, reward)

		switch destType {
		case models.ServiceObjectStorage:
			state.Score.Storage += profile.Score
		case models.ServiceRelationalDB:
			state.Score.Database += profile.Score
		}
		state.Score.Total += profile.Score
		state.Reputation = utils.MinFloat64(state.Reputation+sv.ReputationSuccess, 100)

	case models.OutcomeFailed:
		state.Reputation -= sv.ReputationFailPenalty
		state.Score.Total -= profile.Score / 2
		state.Failures[req.Type]++
	}
}

// ChargeUpkeep deducts the continuous running costs for one tick.
// The event cost multiplier scales everything charged here.
func ChargeUpkeep(catalog *config.Catalog, state *models.SimulationState, reg *topology.Registry, dt float64) {
	costMult := state.Intervention.CostMultiplier

	upkeep := reg.TotalUpkeepPerSec() * costMult * dt
	if upkeep > 0 {
		state.Money -= upkeep
		state.Finance.AddExpense(models.ExpenseUpkeep, upkeep)
	}

	if state.AutoRepair {
		repair := catalog.Survival.AutoRepairUpkeepPerSec * costMult * dt
		state.Money -= repair
		state.Finance.AddExpense(models.ExpenseAutoRepair, repair)
	}
}

// IsGameOver reports whether the terminal failure condition holds
func IsGameOver(catalog *config.Catalog, state *models.SimulationState) bool {
	return state.Reputation <= 0 || state.Money <= catalog.Survival.MoneyFloor
}
