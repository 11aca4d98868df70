package order

import "fmt"

// validTransitions defines allowed fulfillment transitions
var validTransitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// validPaymentTransitions defines allowed payment transitions
var validPaymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentUnpaid:              {PaymentPendingVerification},
	PaymentPendingVerification: {PaymentPaid, PaymentFailed},
	PaymentPaid:                {PaymentRefunded},
	PaymentFailed:              {},
	PaymentRefunded:            {},
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	for _, s := range validTransitions[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// CanTransitionPaymentTo checks the payment axis the same way.
func (o *Order) CanTransitionPaymentTo(target PaymentStatus) bool {
	for _, s := range validPaymentTransitions[o.PaymentStatus] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionPolicy decides whether a status write is legal. The zero value is
// the permissive policy: any known status may follow any other.
type TransitionPolicy struct {
	Strict bool
}

func (p TransitionPolicy) CheckStatus(o *Order, target Status) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if !p.Strict || o.Status == target || o.CanTransitionTo(target) {
		return nil
	}
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
}

func (p TransitionPolicy) CheckPaymentStatus(o *Order, target PaymentStatus) error {
	if !target.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, target)
	}
	if !p.Strict || o.PaymentStatus == target || o.CanTransitionPaymentTo(target) {
		return nil
	}
	return fmt.Errorf("%w: cannot transition payment from %s to %s", ErrInvalidTransition, o.PaymentStatus, target)
}

// StockEffect is what a fulfillment status change does to inventory.
type StockEffect int

const (
	StockUnchanged StockEffect = iota
	// StockRestore returns every line's qty to stock.
	StockRestore
	// StockRededuct takes the qty again when a cancelled order is reinstated.
	StockRededuct
)

// StockEffectOf reports the inventory effect of moving from one status to another.
func StockEffectOf(from, to Status) StockEffect {
	switch {
	case from == to:
		return StockUnchanged
	case to == StatusCancelled:
		return StockRestore
	case from == StatusCancelled:
		return StockRededuct
	default:
		return StockUnchanged
	}
}
