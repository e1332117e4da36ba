package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/money"
)

// Bill maps to the bills table. TotalAmount is always recomputed from the
// bill's items and never taken from a client.
type Bill struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	PatientID   uuid.UUID    `db:"patient_id" json:"patient_id"`
	BillDate    string       `db:"bill_date" json:"bill_date"`
	TotalAmount money.Amount `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// BillListItem is a bill row with its payment aggregates, as returned by
// the list endpoint.
type BillListItem struct {
	Bill
	PaidAmount money.Amount `json:"paid_amount"`
	DueAmount  money.Amount `json:"due_amount"`
}

// BillItem maps to the bill_items table. Items keep the order they were
// submitted in.
type BillItem struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	BillID      uuid.UUID    `db:"bill_id" json:"bill_id"`
	Description string       `db:"description" json:"description"`
	Quantity    int          `db:"quantity" json:"quantity"`
	Price       money.Amount `db:"price" json:"price"`
	Total       money.Amount `db:"total" json:"total"`
	Position    int          `db:"position" json:"-"`
}

// Payment maps to the payments table. Payments are append-only.
type Payment struct {
	ID          uuid.UUID    `db:"id" json:"id"`
	BillID      uuid.UUID    `db:"bill_id" json:"bill_id"`
	Mode        string       `db:"payment_mode" json:"payment_mode"`
	Amount      money.Amount `db:"amount" json:"amount"`
	PaymentDate string       `db:"payment_date" json:"payment_date"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

type Summary struct {
	PaidAmount money.Amount `json:"paid_amount"`
	DueAmount  money.Amount `json:"due_amount"`
}

// BillView is the full read model of one bill.
type BillView struct {
	Bill     *Bill       `json:"bill"`
	Items    []*BillItem `json:"items"`
	Payments []*Payment  `json:"payments"`
	Summary  Summary     `json:"summary"`
}

// PaymentReceipt is returned after a payment is recorded.
type PaymentReceipt struct {
	Payment *Payment `json:"payment"`
	Summary Summary  `json:"summary"`
}

// Due is what remains to be paid, floored at zero.
func Due(total, paid money.Amount) money.Amount {
	if paid >= total {
		return 0
	}
	return total - paid
}

func summarize(total, paid money.Amount) Summary {
	return Summary{PaidAmount: paid, DueAmount: Due(total, paid)}
}

// BillFilter narrows List. Nil fields are not applied.
type BillFilter struct {
	PatientID *uuid.UUID
	From      *string
	To        *string
}
