package inventory

import "time"

// TransactionType classifies a ledger row.
type TransactionType string

const (
	TypeIn           TransactionType = "IN"
	TypeOut          TransactionType = "OUT"
	TypeDeduct       TransactionType = "DEDUCT"
	TypeAdjust       TransactionType = "ADJUST"
	TypeInitialStock TransactionType = "INITIAL_STOCK"
)

// RefType names what caused a ledger row.
type RefType string

const (
	RefOrder            RefType = "ORDER"
	RefVariant          RefType = "VARIANT"
	RefManualAdjustment RefType = "MANUAL_ADJUSTMENT"
	RefStockReceipt     RefType = "STOCK_RECEIPT"
)

const systemActor = "System"

// Transaction is one immutable ledger row. Qty is the signed delta.
type Transaction struct {
	ID              string          `json:"id"`
	VariantID       string          `json:"variant_id"`
	Type            TransactionType `json:"type"`
	Qty             int             `json:"qty"`
	RefType         RefType         `json:"ref_type"`
	RefID           string          `json:"ref_id,omitempty"`
	Note            string          `json:"note,omitempty"`
	CreatedByUserID string          `json:"created_by_user_id,omitempty"`
	CreatedByName   string          `json:"created_by_name,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ActorName is the acting user's display name, or the system marker.
func (t Transaction) ActorName() string {
	if t.CreatedByName != "" {
		return t.CreatedByName
	}
	return systemActor
}

// Reservation is a short-lived hold on stock. It never touches the ledger.
type Reservation struct {
	ID         string     `json:"id"`
	VariantID  string     `json:"variant_id"`
	Qty        int        `json:"qty"`
	Reference  string     `json:"reference,omitempty"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (r Reservation) Active(now time.Time) bool {
	return r.ReleasedAt == nil && now.Before(r.ExpiresAt)
}

// SumLedger totals the signed quantities of the given rows.
func SumLedger(txs []Transaction) int {
	total := 0
	for _, t := range txs {
		total += t.Qty
	}
	return total
}
