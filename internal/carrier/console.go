package carrier

import (
	"context"
	"log"
	"sync"
)

// ConsoleClient is a local placeholder for the NIMBUS API: statuses are set
// by hand and tracked lookups are logged.
type ConsoleClient struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

func NewConsoleClient() *ConsoleClient {
	log.Println("Initialized Console Carrier Client (Placeholder)")
	return &ConsoleClient{statuses: make(map[string]Status)}
}

func (c *ConsoleClient) SetStatus(awb string, status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[awb] = status
}

func (c *ConsoleClient) TrackDomestic(ctx context.Context, awb string) (Status, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status, ok := c.statuses[awb]
	if !ok {
		status = StatusPickupScheduled
	}
	log.Printf("CARRIER (CONSOLE): Track awb=[%s] -> %s", awb, status)
	return status, nil
}
