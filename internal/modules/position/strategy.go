package position

import "sort"

// Strategy turns a portfolio context into rebalancing suggestions. Strategies
// are pure: same context, same result (time-dependent strategies take their
// clock explicitly at construction).
type Strategy interface {
	Name() string
	DisplayName() string
	Description() string
	Evaluate(ctx *Context) *Result
}

// Registry holds the available strategies by name.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates a registry with the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Name()] = s
	}
	return r
}

// Get returns a strategy by name, nil when unknown.
func (r *Registry) Get(name string) Strategy {
	return r.strategies[name]
}

// List returns all strategies in name order.
func (r *Registry) List() []Strategy {
	list := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

const noBudgetSummary = "尚未设置投资预算，请先设置预算。"
