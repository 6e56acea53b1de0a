package model

import "fmt"

// Replay folds an ordered list of entered statuses into the final status,
// verifying that every step was a legal transition. It exists for audit and
// recovery tooling: the timeline must always be replayable into the
// materialized shipment status.
func Replay(statuses []Status) (Status, error) {
	if len(statuses) == 0 {
		return "", fmt.Errorf("replay: empty timeline")
	}
	current := statuses[0]
	if !current.IsValid() {
		return "", fmt.Errorf("replay: unknown status %q", current)
	}
	for _, next := range statuses[1:] {
		if !CanTransition(current, next) {
			return "", fmt.Errorf("replay: illegal transition %s -> %s", current, next)
		}
		current = next
	}
	return current, nil
}
