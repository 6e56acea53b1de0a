package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Request-shape checks that run before anything reaches the state machine.
// Failures here are VALIDATION_ERROR at the boundary: no engine call, no
// state change.

var ErrValidation = errors.New("validation error")

var awbPattern = regexp.MustCompile(`^[A-Z0-9-]{6,32}$`)

type BookingPayload struct {
	OwnerID     string `json:"owner_id"`
	DomesticAWB string `json:"domestic_awb,omitempty"`
	Simulated   bool   `json:"simulated,omitempty"`
}

// NormalizeBooking trims and validates a booking payload in place.
func NormalizeBooking(p *BookingPayload) error {
	p.OwnerID = strings.TrimSpace(p.OwnerID)
	p.DomesticAWB = strings.ToUpper(strings.TrimSpace(p.DomesticAWB))

	if p.OwnerID == "" {
		return fmt.Errorf("%w: owner_id is required", ErrValidation)
	}
	if p.DomesticAWB != "" && !awbPattern.MatchString(p.DomesticAWB) {
		return fmt.Errorf("%w: domestic_awb must match %s", ErrValidation, awbPattern)
	}
	return nil
}

type AdminActionPayload struct {
	Action          string `json:"action"`
	ExpectedVersion int64  `json:"expected_version"`
}

func NormalizeAdminAction(p *AdminActionPayload) error {
	p.Action = strings.ToLower(strings.TrimSpace(p.Action))

	if p.Action == "" {
		return fmt.Errorf("%w: action is required", ErrValidation)
	}
	if p.ExpectedVersion < 1 {
		return fmt.Errorf("%w: expected_version must be >= 1", ErrValidation)
	}
	return nil
}

type DispatchPayload struct {
	ExpectedVersion  int64  `json:"expected_version"`
	InternationalAWB string `json:"international_awb,omitempty"`
}

func NormalizeDispatch(p *DispatchPayload) error {
	p.InternationalAWB = strings.ToUpper(strings.TrimSpace(p.InternationalAWB))

	if p.ExpectedVersion < 1 {
		return fmt.Errorf("%w: expected_version must be >= 1", ErrValidation)
	}
	if p.InternationalAWB != "" && !awbPattern.MatchString(p.InternationalAWB) {
		return fmt.Errorf("%w: international_awb must match %s", ErrValidation, awbPattern)
	}
	return nil
}
