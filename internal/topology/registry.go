package topology

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/VivekJangam126/server-survival-sub000/pkg/config"
	"github.com/VivekJangam126/server-survival-sub000/pkg/logger"
	"github.com/VivekJangam126/server-survival-sub000/pkg/models"
	"github.com/VivekJangam126/server-survival-sub000/pkg/utils"
)

// Refusals are expected outcomes reported to the caller, never thrown.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOccupied          = errors.New("position occupied")
	ErrUnknownType       = errors.New("unknown service type")
	ErrNotFound          = errors.New("not found")
	ErrSelfLoop          = errors.New("connection cannot target itself")
	ErrDuplicateEdge     = errors.New("connection already exists")
	ErrIncompatible      = errors.New("incompatible connection types")
	ErrMaxTier           = errors.New("service already at max tier")
)

// Connection is a directed edge between two node identifiers
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// compatible lists the allowed (fromType, toType) pairs. The internet
// ingress node participates with its fixed id.
var compatible = map[string][]models.ServiceType{
	models.InternetNodeID: {
		models.ServiceFirewall,
		models.ServiceCDN,
		models.ServiceLoadBalancer,
	},
	string(models.ServiceFirewall): {
		models.ServiceLoadBalancer,
		models.ServiceCompute,
	},
	string(models.ServiceLoadBalancer): {
		models.ServiceCompute,
	},
	string(models.ServiceCompute): {
		models.ServiceCache,
		models.ServiceQueue,
		models.ServiceRelationalDB,
		models.ServiceObjectStorage,
	},
	string(models.ServiceCache): {
		models.ServiceRelationalDB,
		models.ServiceObjectStorage,
	},
	string(models.ServiceQueue): {
		models.ServiceRelationalDB,
		models.ServiceObjectStorage,
	},
	string(models.ServiceCDN): {
		models.ServiceObjectStorage,
	},
}

// InternetPos anchors the ingress node on the grid
var InternetPos = models.Position{X: 0, Y: 0}

// Registry owns the placed services and their directed topology.
// All money movements go through the SimulationState passed in
// explicitly; the registry itself holds no economy state.
type Registry struct {
	catalog  *config.Catalog
	services map[string]*Service
	order    []string // stable iteration order, insertion-ordered
	internet []string // outbound edges of the ingress node
	edges    []Connection
	logger   *slog.Logger
}

// NewRegistry creates an empty registry over the given catalog
func NewRegistry(catalog *config.Catalog) *Registry {
	return &Registry{
		catalog:  catalog,
		services: make(map[string]*Service),
		logger:   logger.Default,
	}
}

// SetLogger sets the registry's logger
func (r *Registry) SetLogger(l *slog.Logger) {
	r.logger = l
}

// CreateService places a new service, charging its base cost.
// Refuses with no state change on insufficient funds or when another
// service sits within the minimum placement distance.
func (r *Registry) CreateService(state *models.SimulationState, t models.ServiceType, pos models.Position) (*Service, error) {
	spec, ok := r.catalog.Services[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if state.Money < spec.Cost {
		return nil, fmt.Errorf("%w: %s costs %.0f, have %.0f", ErrInsufficientFunds, t, spec.Cost, state.Money)
	}
	minDist := r.catalog.Survival.MinPlacementDistance
	for _, svc := range r.services {
		if distance(svc.Pos, pos) < minDist {
			return nil, fmt.Errorf("%w: too close to %s", ErrOccupied, svc.ID)
		}
	}

	svc := newService(utils.GenerateServiceID(string(t)), t, pos, spec)
	r.services[svc.ID] = svc
	r.order = append(r.order, svc.ID)

	state.Money -= spec.Cost
	state.Finance.AddExpense(models.ExpensePlacement, spec.Cost)
	state.Finance.ExpenseByService[t] += spec.Cost

	r.logger.Info("service placed", "id", svc.ID, "type", t, "cost", spec.Cost)
	return svc, nil
}

// DeleteService removes a service, cascades removal of every
// connection touching it and refunds floor(cost/2).
func (r *Registry) DeleteService(state *models.SimulationState, id string) error {
	svc, ok := r.services[id]
	if !ok {
		return fmt.Errorf("%w: service %s", ErrNotFound, id)
	}

	delete(r.services, id)
	for i, sid := range r.order {
		if sid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.internet = removeID(r.internet, id)
	for _, other := range r.services {
		other.Outbound = removeID(other.Outbound, id)
	}
	kept := r.edges[:0]
	for _, e := range r.edges {
		if e.From != id && e.To != id {
			kept = append(kept, e)
		}
	}
	r.edges = kept

	refund := math.Floor(svc.BaseCost() / 2)
	state.Money += refund

	r.logger.Info("service deleted", "id", id, "type", svc.Type, "refund", refund)
	return nil
}

// UpgradeService raises a service one tier, charging the tier cost.
func (r *Registry) UpgradeService(state *models.SimulationState, id string) (*Service, error) {
	svc, ok := r.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: service %s", ErrNotFound, id)
	}
	if svc.Tier >= svc.MaxTier() {
		return nil, fmt.Errorf("%w: %s tier %d", ErrMaxTier, id, svc.Tier)
	}
	cost := svc.spec.TierCostFor(svc.Tier + 1)
	if state.Money < cost {
		return nil, fmt.Errorf("%w: tier %d costs %.0f, have %.0f", ErrInsufficientFunds, svc.Tier+1, cost, state.Money)
	}

	svc.Tier++
	state.Money -= cost
	state.Finance.AddExpense(models.ExpenseUpgrade, cost)
	state.Finance.ExpenseByService[svc.Type] += cost

	r.logger.Info("service upgraded", "id", id, "tier", svc.Tier, "cost", cost)
	return svc, nil
}

// CreateConnection adds a directed edge after compatibility checks.
func (r *Registry) CreateConnection(fromID, toID string) error {
	if fromID == toID {
		return ErrSelfLoop
	}

	toSvc, ok := r.services[toID]
	if !ok {
		return fmt.Errorf("%w: service %s", ErrNotFound, toID)
	}

	var fromKey string
	var fromList *[]string
	if fromID == models.InternetNodeID {
		fromKey = models.InternetNodeID
		fromList = &r.internet
	} else {
		fromSvc, ok := r.services[fromID]
		if !ok {
			return fmt.Errorf("%w: service %s", ErrNotFound, fromID)
		}
		fromKey = string(fromSvc.Type)
		fromList = &fromSvc.Outbound
	}

	for _, existing := range *fromList {
		if existing == toID {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateEdge, fromID, toID)
		}
	}

	allowed := false
	for _, t := range compatible[fromKey] {
		if t == toSvc.Type {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: %s -> %s", ErrIncompatible, fromKey, toSvc.Type)
	}

	*fromList = append(*fromList, toID)
	r.edges = append(r.edges, Connection{From: fromID, To: toID})

	r.logger.Debug("connection created", "from", fromID, "to", toID)
	return nil
}

// DeleteConnection removes a matching edge; reports not-found otherwise.
func (r *Registry) DeleteConnection(fromID, toID string) error {
	var list *[]string
	if fromID == models.InternetNodeID {
		list = &r.internet
	} else {
		fromSvc, ok := r.services[fromID]
		if !ok {
			return fmt.Errorf("%w: service %s", ErrNotFound, fromID)
		}
		list = &fromSvc.Outbound
	}

	found := false
	for _, existing := range *list {
		if existing == toID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: connection %s -> %s", ErrNotFound, fromID, toID)
	}

	*list = removeID(*list, toID)
	for i, e := range r.edges {
		if e.From == fromID && e.To == toID {
			r.edges = append(r.edges[:i], r.edges[i+1:]...)
			break
		}
	}
	return nil
}

// RestoreService rebuilds a service from a persisted snapshot without
// charging its cost. Health and load state come back at defaults; the
// tier is clamped to the type's bounds.
func (r *Registry) RestoreService(id string, t models.ServiceType, pos models.Position, tier int) (*Service, error) {
	spec, ok := r.catalog.Services[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	if _, exists := r.services[id]; exists {
		return nil, fmt.Errorf("duplicate service id %s", id)
	}
	svc := newService(id, t, pos, spec)
	svc.Tier = utils.Clamp(tier, 1, spec.MaxTier)
	r.services[id] = svc
	r.order = append(r.order, id)
	return svc, nil
}

// ProcessAutoRepair heals every damaged service at the configured rate
func (r *Registry) ProcessAutoRepair(state *models.SimulationState, dt float64) {
	if !state.AutoRepair {
		return
	}
	for _, id := range r.order {
		r.services[id].Heal(dt, r.catalog.Survival.RepairPerSec)
	}
}

// DegradeOverloaded applies the per-tick health rule to every service
func (r *Registry) DegradeOverloaded(state *models.SimulationState, dt float64) {
	sv := r.catalog.Survival
	capMult := state.Intervention.CapacityMultiplier
	for _, id := range r.order {
		r.services[id].Degrade(dt, sv.DegradeThreshold, sv.DegradePerSec, capMult)
	}
}

// Get returns a service by id
func (r *Registry) Get(id string) (*Service, bool) {
	svc, ok := r.services[id]
	return svc, ok
}

// All returns every service in placement order
func (r *Registry) All() []*Service {
	out := make([]*Service, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.services[id])
	}
	return out
}

// Connections returns the flat connection list, implicit ingress edges included
func (r *Registry) Connections() []Connection {
	out := make([]Connection, len(r.edges))
	copy(out, r.edges)
	return out
}

// EntryCandidates returns every service directly connected from the
// internet ingress node, in connection order.
func (r *Registry) EntryCandidates() []*Service {
	out := make([]*Service, 0, len(r.internet))
	for _, id := range r.internet {
		if svc, ok := r.services[id]; ok {
			out = append(out, svc)
		}
	}
	return out
}

// Outbound returns the live outbound targets of a service
func (r *Registry) Outbound(id string) []*Service {
	svc, ok := r.services[id]
	if !ok {
		return nil
	}
	out := make([]*Service, 0, len(svc.Outbound))
	for _, tid := range svc.Outbound {
		if target, ok := r.services[tid]; ok {
			out = append(out, target)
		}
	}
	return out
}

// TotalUpkeepPerSec sums upkeep across every placed service
func (r *Registry) TotalUpkeepPerSec() float64 {
	total := 0.0
	for _, svc := range r.services {
		total += svc.UpkeepPerSec()
	}
	return total
}

// RandomNonFirewall picks a random service that is not a firewall,
// used by the outage event. Returns nil when none qualify.
func (r *Registry) RandomNonFirewall(rng *utils.RandSource) *Service {
	candidates := make([]*Service, 0, len(r.order))
	for _, id := range r.order {
		svc := r.services[id]
		if svc.Type != models.ServiceFirewall && !svc.Disabled {
			candidates = append(candidates, svc)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rng.Intn(len(candidates))]
}

func removeID(list []string, id string) []string {
	for i, v := range list {
		if v == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
