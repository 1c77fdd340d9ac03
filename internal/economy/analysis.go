package economy

import (
	"fmt"

	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
)

// FailureReason classifies why the game ended
type FailureReason string

const (
	ReasonReputationCollapse FailureReason = "reputation_collapse"
	ReasonBankruptcy         FailureReason = "bankruptcy"
)

// FailureReport is the structured game-over explanation
type FailureReport struct {
	Reason      FailureReason `json:"reason"`
	Description string        `json:"description"`
	Tips        []string      `json:"tips"`
}

const maxTips = 4

// AnalyzeFailure inspects the failure counters and the finance ledger
// and produces the primary reason plus prioritized remediation tips.
// Rule-based and reproducible from a given failure snapshot.
func AnalyzeFailure(catalog *config.Catalog, state *models.SimulationState) *FailureReport {
	report := &FailureReport{}

	if state.Reputation <= 0 {
		report.Reason = ReasonReputationCollapse
		report.Description = fmt.Sprintf(
			"Your reputation collapsed after too many failed or breached requests (score %d, money %.0f).",
			state.Score.Total, state.Money)
	} else {
		report.Reason = ReasonBankruptcy
		report.Description = fmt.Sprintf(
			"Your architecture ran out of money: expenses of %.0f outpaced income (reputation %.0f).",
			state.Finance.TotalExpenses(), state.Reputation)
	}

	maliciousFails := state.Failures[models.TrafficMalicious]
	resourceFails := 0
	for t, n := range state.Failures {
		if t != models.TrafficMalicious {
			resourceFails += n
		}
	}

	if maliciousFails > 0 && maliciousFails >= resourceFails {
		report.Tips = append(report.Tips,
			"Malicious traffic got through: place a firewall directly behind the internet entry point so attacks are blocked before they reach your stack.")
	}
	if resourceFails > maliciousFails {
		report.Tips = append(report.Tips,
			"Most failures were capacity failures: add a cache in front of your databases and a CDN for static traffic to offload hot services.")
	}

	totalExpenses := state.Finance.TotalExpenses()
	upkeep := state.Finance.Expense[models.ExpenseUpkeep] + state.Finance.Expense[models.ExpenseAutoRepair]
	if totalExpenses > 0 && upkeep/totalExpenses > 0.5 {
		report.Tips = append(report.Tips,
			"Upkeep dominated your expenses: scale out more slowly and upgrade existing tiers instead of placing new services.")
	}

	if state.RoutingFailures > 0 {
		report.Tips = append(report.Tips,
			"Some requests had no entry point at all: keep at least one service connected to the internet node.")
	}

	if len(report.Tips) == 0 {
		report.Tips = append(report.Tips,
			"Balance income and upkeep early: a small, well-connected architecture survives longer than a sprawling one.")
	}
	if len(report.Tips) > maxTips {
		report.Tips = report.Tips[:maxTips]
	}
	return report
}
