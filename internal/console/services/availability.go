package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
	"github.com/dmitrijs2005/matchdesk/internal/logging"
	"github.com/dmitrijs2005/matchdesk/internal/metrics"
)

// Availability holds the process-wide view of the remote service. It starts
// in the checking state.
type Availability struct {
	mu     sync.RWMutex
	state  models.Availability
	logger logging.Logger
}

func NewAvailability(logger logging.Logger) *Availability {
	metrics.SetAvailability(string(models.AvailabilityChecking))
	return &Availability{state: models.AvailabilityChecking, logger: logger.With("component", "availability")}
}

func (a *Availability) Get() models.Availability {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Availability) Online() bool  { return a.Get() == models.AvailabilityOnline }
func (a *Availability) Offline() bool { return a.Get() == models.AvailabilityOffline }

// Set records a new state and reports whether it changed. Transitions are
// logged once.
func (a *Availability) Set(ctx context.Context, state models.Availability) bool {
	a.mu.Lock()
	prev := a.state
	a.state = state
	a.mu.Unlock()

	if prev == state {
		return false
	}
	metrics.SetAvailability(string(state))
	a.logger.Info(ctx, "remote availability changed", "from", prev, "to", state)
	return true
}
