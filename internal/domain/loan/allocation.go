package loan

import (
	"fmt"
	"loan-engine/internal/pkg/money"
	"sort"
	"strings"
)

const DefaultStrategy = "penalty-fee-interest-principal"

// AllocationStrategy decides how a credit is spread over the schedule. It
// mutates the installments it pays and returns the portions applied plus any
// amount left once everything is settled.
type AllocationStrategy interface {
	Name() string
	Allocate(installments []Installment, amount money.Money) (Portions, money.Money)
}

// componentOrderStrategy pays installments oldest first, settling each
// installment completely in component order before moving to the next.
type componentOrderStrategy struct {
	name  string
	order []Component
}

func (s componentOrderStrategy) Name() string { return s.name }

func (s componentOrderStrategy) Allocate(installments []Installment, amount money.Money) (Portions, money.Money) {
	portions := zeroPortions(amount.Currency())
	remaining := amount
	for i := range installments {
		if !remaining.IsGreaterThanZero() {
			break
		}
		inst := &installments[i]
		for _, c := range s.order {
			applied := inst.pay(c, remaining)
			portions.add(c, applied)
			remaining = remaining.Minus(applied)
		}
	}
	return portions, remaining
}

var strategies = map[string]AllocationStrategy{}

func registerStrategy(s AllocationStrategy) {
	strategies[s.Name()] = s
}

func init() {
	registerStrategy(componentOrderStrategy{
		name:  DefaultStrategy,
		order: []Component{ComponentPenalty, ComponentFee, ComponentInterest, ComponentPrincipal},
	})
	registerStrategy(componentOrderStrategy{
		name:  "principal-interest-penalty-fee",
		order: []Component{ComponentPrincipal, ComponentInterest, ComponentPenalty, ComponentFee},
	})
	registerStrategy(componentOrderStrategy{
		name:  "interest-principal-penalty-fee",
		order: []Component{ComponentInterest, ComponentPrincipal, ComponentPenalty, ComponentFee},
	})
}

// StrategyByName resolves a registered strategy. An empty name selects the
// default.
func StrategyByName(name string) (AllocationStrategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	s, ok := strategies[strings.ToLower(name)]
	if !ok {
		return nil, newTermsError("strategy", name, fmt.Sprintf("unknown allocation strategy, expected one of %s", strings.Join(StrategyNames(), ", ")))
	}
	return s, nil
}

func StrategyNames() []string {
	names := make([]string, 0, len(strategies))
	for n := range strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func waiveComponents(installments []Installment, amount money.Money, portions *Portions, components ...Component) money.Money {
	remaining := amount
	for i := range installments {
		for _, c := range components {
			if !remaining.IsGreaterThanZero() {
				return remaining
			}
			applied := installments[i].waive(c, remaining)
			portions.add(c, applied)
			remaining = remaining.Minus(applied)
		}
	}
	return remaining
}
