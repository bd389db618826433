package model

import "time"

// DeliveryOutcome is the buyer-visible terminal result of an order.
type DeliveryOutcome string

const (
	OutcomeCompleted DeliveryOutcome = "completed"
	OutcomePartial   DeliveryOutcome = "partial"
	OutcomeFailed    DeliveryOutcome = "failed"
)

// FailureKind classifies why a batch pass or an order did not fully succeed.
type FailureKind string

const (
	FailureNone                 FailureKind = ""
	FailureValidatorUnavailable FailureKind = "validator_unavailable"
	FailureNoUnitsAvailable     FailureKind = "no_units_available"
	FailurePartialSupply        FailureKind = "partial_supply"
	FailureStoreIO              FailureKind = "store_io_error"
	FailureInternal             FailureKind = "internal_error"
)

// Delivery is the payload handed to the notification collaborator for one order.
type Delivery struct {
	OrderID         string          `json:"order_id"`
	UserID          string          `json:"user_id"`
	Product         string          `json:"product"`
	Requested       int             `json:"requested"`
	Delivered       int             `json:"delivered"`
	Outcome         DeliveryOutcome `json:"outcome"`
	Failure         FailureKind     `json:"failure,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	Identities      []string        `json:"identities,omitempty"`
	Artifact        string          `json:"-"`
	Contents        []string        `json:"-"`
	Channel         string          `json:"-"`
	PrecheckEnabled bool            `json:"precheck_enabled"`
	PrecheckValid   int             `json:"precheck_valid"`
	PrecheckInvalid int             `json:"precheck_invalid"`
	SettledAt       time.Time       `json:"settled_at"`
}

// Partial reports whether fewer units were delivered than requested.
func (d *Delivery) Partial() bool {
	return d.Delivered > 0 && d.Delivered < d.Requested
}
