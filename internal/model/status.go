package model

// Status is the canonical shipment status. The set is closed: every accepted
// transition moves a shipment to the direct successor of its current status,
// or to CANCELLED while still cancellable.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusBooked           Status = "BOOKED"
	StatusAtWarehouse      Status = "AT_WAREHOUSE"
	StatusQualityChecked   Status = "QUALITY_CHECKED"
	StatusPackaged         Status = "PACKAGED"
	StatusDispatchApproved Status = "DISPATCH_APPROVED"
	StatusDispatched       Status = "DISPATCHED"
	StatusInTransit        Status = "IN_TRANSIT"
	StatusCustomsClearance Status = "CUSTOMS_CLEARANCE"
	StatusOutForDelivery   Status = "OUT_FOR_DELIVERY"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelled        Status = "CANCELLED"
)

// Source identifies which actor class drove a status change.
type Source string

const (
	SourceExternal   Source = "EXTERNAL"
	SourceInternal   Source = "INTERNAL"
	SourceSimulation Source = "SIMULATION"
	SourceSystem     Source = "SYSTEM"
)

// Leg is the coarse phase of the journey, derived from status.
type Leg string

const (
	LegDomestic      Leg = "DOMESTIC"
	LegInternational Leg = "INTERNATIONAL"
	LegCompleted     Leg = "COMPLETED"
)

// forwardOrder is the happy path. CANCELLED is handled separately: it is
// reachable from any status strictly before DISPATCHED.
var forwardOrder = []Status{
	StatusDraft,
	StatusBooked,
	StatusAtWarehouse,
	StatusQualityChecked,
	StatusPackaged,
	StatusDispatchApproved,
	StatusDispatched,
	StatusInTransit,
	StatusCustomsClearance,
	StatusOutForDelivery,
	StatusDelivered,
}

var forwardIndex = func() map[Status]int {
	m := make(map[Status]int, len(forwardOrder))
	for i, s := range forwardOrder {
		m[s] = i
	}
	return m
}()

// IsValid reports whether s is a member of the status enumeration.
func (s Status) IsValid() bool {
	if s == StatusCancelled {
		return true
	}
	_, ok := forwardIndex[s]
	return ok
}

// IsTerminal reports whether s admits no outgoing transitions.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// IsValid reports whether src is a member of the source enumeration.
func (src Source) IsValid() bool {
	switch src {
	case SourceExternal, SourceInternal, SourceSimulation, SourceSystem:
		return true
	}
	return false
}

// CanTransition reports whether to is a legal direct successor of from.
// There is no force path: skips, backward moves and mutations of terminal
// shipments are all rejected here.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	fi, ok := forwardIndex[from]
	if !ok {
		return false
	}
	if to == StatusCancelled {
		// Cancellable up to but not including DISPATCHED.
		return fi < forwardIndex[StatusDispatched]
	}
	ti, ok := forwardIndex[to]
	if !ok {
		return false
	}
	return ti == fi+1
}

// Next returns the direct forward successor of s. ok is false for terminal
// statuses and for CANCELLED.
func Next(s Status) (next Status, ok bool) {
	fi, found := forwardIndex[s]
	if !found || fi == len(forwardOrder)-1 {
		return "", false
	}
	return forwardOrder[fi+1], true
}

// LegFor derives the journey leg from a status.
func LegFor(s Status) Leg {
	switch s {
	case StatusDelivered, StatusCancelled:
		return LegCompleted
	case StatusDispatched, StatusInTransit, StatusCustomsClearance, StatusOutForDelivery:
		return LegInternational
	default:
		return LegDomestic
	}
}
