package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/money"
)

type BillRepository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// LockByID reads the bill and holds its row lock until the surrounding
	// transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f BillFilter, limit, offset int) ([]*BillListItem, int, error)
	// Items
	ReplaceItems(ctx context.Context, billID uuid.UUID, items []*BillItem) error
	GetItems(ctx context.Context, billID uuid.UUID) ([]*BillItem, error)
	// RecomputeTotal sets the bill total to the sum of its item totals and
	// returns it.
	RecomputeTotal(ctx context.Context, billID uuid.UUID) (money.Amount, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	// ListByBill orders by payment date, newest first.
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error)
	SumByBill(ctx context.Context, billID uuid.UUID) (money.Amount, error)
}
