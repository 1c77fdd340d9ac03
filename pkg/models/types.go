package models

// TrafficType classifies a simulated request
type TrafficType string

const (
	TrafficStatic    TrafficType = "STATIC"
	TrafficRead      TrafficType = "READ"
	TrafficWrite     TrafficType = "WRITE"
	TrafficUpload    TrafficType = "UPLOAD"
	TrafficSearch    TrafficType = "SEARCH"
	TrafficMalicious TrafficType = "MALICIOUS"
)

// AllTrafficTypes lists every traffic type in a stable order
var AllTrafficTypes = []TrafficType{
	TrafficStatic,
	TrafficRead,
	TrafficWrite,
	TrafficUpload,
	TrafficSearch,
	TrafficMalicious,
}

// ServiceType classifies a placed infrastructure node
type ServiceType string

const (
	ServiceFirewall      ServiceType = "firewall"
	ServiceLoadBalancer  ServiceType = "load-balancer"
	ServiceCompute       ServiceType = "compute"
	ServiceRelationalDB  ServiceType = "relational-db"
	ServiceObjectStorage ServiceType = "object-storage"
	ServiceCache         ServiceType = "cache"
	ServiceQueue         ServiceType = "queue"
	ServiceCDN           ServiceType = "cdn"
)

// AllServiceTypes lists every service type in a stable order
var AllServiceTypes = []ServiceType{
	ServiceFirewall,
	ServiceLoadBalancer,
	ServiceCompute,
	ServiceRelationalDB,
	ServiceObjectStorage,
	ServiceCache,
	ServiceQueue,
	ServiceCDN,
}

// IsTerminal reports whether a service type completes requests (data stores)
func (t ServiceType) IsTerminal() bool {
	return t == ServiceRelationalDB || t == ServiceObjectStorage
}

// InternetNodeID is the fixed ingress node every entry connection hangs off
const InternetNodeID = "internet"

// RequestPhase tracks a request through its lifecycle state machine
type RequestPhase string

const (
	PhaseSpawned   RequestPhase = "spawned"
	PhaseEnRoute   RequestPhase = "en_route"
	PhaseAdmitted  RequestPhase = "admitted"
	PhaseRejected  RequestPhase = "rejected"
	PhaseCompleted RequestPhase = "completed"
	PhaseFailed    RequestPhase = "failed"
)

// RequestOutcome is the terminal economic classification of a request
type RequestOutcome string

const (
	OutcomeMaliciousBlocked RequestOutcome = "MALICIOUS_BLOCKED"
	OutcomeMaliciousPassed  RequestOutcome = "MALICIOUS_PASSED"
	OutcomeCompleted        RequestOutcome = "COMPLETED"
	OutcomeFailed           RequestOutcome = "FAILED"
)

// Position is a 2D grid coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Request is one unit of simulated traffic moving through the topology.
// A request takes exactly one terminal transition and is then removed.
type Request struct {
	ID        string       `json:"id"`
	Type      TrafficType  `json:"type"`
	Phase     RequestPhase `json:"phase"`
	Pos       Position     `json:"pos"`
	TargetID  string       `json:"target_id"`
	Cached    bool         `json:"cached"`
	Remaining float64      `json:"-"` // processing seconds left while admitted
	LingerFor float64      `json:"-"` // failure display delay before removal
}

// ScoreBoard is the score breakdown shown to the player
type ScoreBoard struct {
	Total            int `json:"total"`
	Storage          int `json:"storage"`
	Database         int `json:"database"`
	MaliciousBlocked int `json:"malicious_blocked"`
}

// FinanceLedger tracks income and expenses by category
type FinanceLedger struct {
	Income           map[TrafficType]float64 `json:"income"`
	IncomeCount      map[TrafficType]int     `json:"income_count"`
	Expense          map[string]float64      `json:"expense"`
	ExpenseByService map[ServiceType]float64 `json:"expense_by_service"`
}

// Expense ledger categories
const (
	ExpensePlacement  = "placement"
	ExpenseUpgrade    = "upgrade"
	ExpenseUpkeep     = "upkeep"
	ExpenseAutoRepair = "auto_repair"
	ExpenseMitigation = "mitigation"
	ExpenseBreach     = "breach"
)

// NewFinanceLedger creates an empty ledger
func NewFinanceLedger() FinanceLedger {
	return FinanceLedger{
		Income:           make(map[TrafficType]float64),
		IncomeCount:      make(map[TrafficType]int),
		Expense:          make(map[string]float64),
		ExpenseByService: make(map[ServiceType]float64),
	}
}

// AddIncome credits an income line for a traffic type
func (l *FinanceLedger) AddIncome(t TrafficType, amount float64) {
	l.Income[t] += amount
	l.IncomeCount[t]++
}

// AddExpense debits an expense category
func (l *FinanceLedger) AddExpense(category string, amount float64) {
	l.Expense[category] += amount
}

// TotalExpenses sums every expense category
func (l *FinanceLedger) TotalExpenses() float64 {
	total := 0.0
	for _, v := range l.Expense {
		total += v
	}
	return total
}

// EventKind identifies a scripted random adverse event
type EventKind string

const (
	EventCostSpike    EventKind = "cost_spike"
	EventCapacityDrop EventKind = "capacity_drop"
	EventTrafficBurst EventKind = "traffic_burst"
	EventOutage       EventKind = "outage"
)

// ActiveEvent is the single scripted event currently in effect
type ActiveEvent struct {
	Kind       EventKind `json:"kind"`
	StartedAt  float64   `json:"started_at"`  // sim seconds
	EndsAt     float64   `json:"ends_at"`     // sim seconds
	Multiplier float64   `json:"multiplier"`  // cost, capacity or burst factor
	ServiceID  string    `json:"service_id"`  // set for outage events
}

// Intervention tracks scripted perturbations layered onto the continuous state
type Intervention struct {
	Event *ActiveEvent `json:"event,omitempty"`

	// Malicious spike: skew the distribution toward MALICIOUS for a while
	SpikeWarnedAt   float64                 `json:"spike_warned_at"`
	SpikeActive     bool                    `json:"spike_active"`
	SpikeEndsAt     float64                 `json:"spike_ends_at"`
	SpikeSnapshot   map[TrafficType]float64 `json:"spike_snapshot,omitempty"`
	NextSpikeCheck  float64                 `json:"next_spike_check"`

	// Traffic shift: full scripted replacement of the distribution
	ShiftActive   bool                    `json:"shift_active"`
	ShiftEndsAt   float64                 `json:"shift_ends_at"`
	ShiftSnapshot map[TrafficType]float64 `json:"shift_snapshot,omitempty"`
	NextShift     float64                 `json:"next_shift"`

	NextEventCheck float64 `json:"next_event_check"`
	MilestoneIndex int     `json:"milestone_index"`

	CostMultiplier     float64 `json:"cost_multiplier"`
	CapacityMultiplier float64 `json:"capacity_multiplier"`
	BurstMultiplier    float64 `json:"burst_multiplier"`
}

// SimulationState holds all mutable simulation data for one game.
// Exactly one instance is live at a time; it is passed by pointer into
// every component rather than living as a package global.
type SimulationState struct {
	Money      float64    `json:"money"`
	Reputation float64    `json:"reputation"`
	Score      ScoreBoard `json:"score"`

	Distribution map[TrafficType]float64 `json:"distribution"`
	CurrentRPS   float64                 `json:"current_rps"`
	Elapsed      float64                 `json:"elapsed"` // sim seconds

	Finance      FinanceLedger `json:"finance"`
	Intervention Intervention  `json:"intervention"`

	Failures        map[TrafficType]int `json:"failures"`
	RoutingFailures int                 `json:"routing_failures"`

	AutoRepair bool `json:"auto_repair"`
	GameOver   bool `json:"game_over"`
}

// NewSimulationState creates a fresh state for a new game
func NewSimulationState(money, reputation, baseRPS float64, distribution map[TrafficType]float64) *SimulationState {
	dist := make(map[TrafficType]float64, len(distribution))
	for k, v := range distribution {
		dist[k] = v
	}
	return &SimulationState{
		Money:        money,
		Reputation:   reputation,
		Distribution: dist,
		CurrentRPS:   baseRPS,
		Finance:      NewFinanceLedger(),
		Failures:     make(map[TrafficType]int),
		Intervention: Intervention{
			CostMultiplier:     1.0,
			CapacityMultiplier: 1.0,
			BurstMultiplier:    1.0,
		},
	}
}

// CloneDistribution returns an independent copy of the traffic distribution
func (s *SimulationState) CloneDistribution() map[TrafficType]float64 {
	out := make(map[TrafficType]float64, len(s.Distribution))
	for k, v := range s.Distribution {
		out[k] = v
	}
	return out
}
