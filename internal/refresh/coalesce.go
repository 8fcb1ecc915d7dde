package refresh

import (
	"context"
	"sync"

	"github.com/adlens/adlens/internal/models"
)

type flight struct {
	done    chan struct{}
	payload []models.RawCampaignPayload
	err     error
}

// FlightGroup coalesces concurrent fetches for the same cache key: the first
// caller performs the fetch, later callers block on the same in-flight
// result instead of issuing a duplicate upstream request. It is an explicit
// dependency shared by the orchestrator and the on-demand report path.
type FlightGroup struct {
	mu      sync.Mutex
	flights map[string]*flight
}

func NewFlightGroup() *FlightGroup {
	return &FlightGroup{flights: make(map[string]*flight)}
}

// Do runs fn for key unless a fetch for the same key is already in flight,
// in which case it waits for that fetch and shares its result. A waiter
// whose context expires gives up without cancelling the shared fetch.
func (g *FlightGroup) Do(ctx context.Context, key string, fn func() ([]models.RawCampaignPayload, error)) ([]models.RawCampaignPayload, error) {
	g.mu.Lock()
	if fl, ok := g.flights[key]; ok {
		g.mu.Unlock()
		select {
		case <-fl.done:
			return fl.payload, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	fl := &flight{done: make(chan struct{})}
	g.flights[key] = fl
	g.mu.Unlock()

	fl.payload, fl.err = fn()

	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()
	close(fl.done)

	return fl.payload, fl.err
}
