package recommend

import (
	"errors"
	"fmt"
	"strings"

	"pcbuilder/internal/models"
)

var (
	// ErrNoBudget means the request carried no positive budget.
	ErrNoBudget = errors.New("no budget provided")
	// ErrInfeasible means no combination satisfied the mandatory categories.
	ErrInfeasible = errors.New("no feasible build")
)

// InfeasibleError describes where allocation gave up. Committed lists the
// categories picked before the failure; those picks are discarded.
type InfeasibleError struct {
	Category  models.Category
	Reason    string
	Committed []models.Category
}

func (e *InfeasibleError) Error() string {
	var b strings.Builder
	b.WriteString(ErrInfeasible.Error())
	if e.Category != "" {
		fmt.Fprintf(&b, ": no %s", e.Category)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, " (%s)", e.Reason)
	}
	return b.String()
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }
