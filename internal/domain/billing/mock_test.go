package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/pkg/money"
)

// memLedger backs both mock repositories so payments and bills share state
// the way the tables do.
type memLedger struct {
	mu       sync.Mutex
	bills    map[uuid.UUID]*Bill
	items    map[uuid.UUID][]*BillItem
	payments map[uuid.UUID][]*Payment
}

func newMemLedger() *memLedger {
	return &memLedger{
		bills:    make(map[uuid.UUID]*Bill),
		items:    make(map[uuid.UUID][]*BillItem),
		payments: make(map[uuid.UUID][]*Payment),
	}
}

// -- Mock Bill Repository --

type mockBillRepo struct{ *memLedger }

func (m mockBillRepo) Create(_ context.Context, b *Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = uuid.New()
	b.TotalAmount = 0
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	cp := *b
	m.bills[b.ID] = &cp
	return nil
}

func (m mockBillRepo) GetByID(_ context.Context, id uuid.UUID) (*Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[id]
	if !ok {
		return nil, ErrBillNotFound
	}
	cp := *b
	return &cp, nil
}

func (m mockBillRepo) LockByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return m.GetByID(ctx, id)
}

func (m mockBillRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[id]; !ok {
		return ErrBillNotFound
	}
	if len(m.payments[id]) > 0 {
		return ErrBillHasPayments
	}
	delete(m.bills, id)
	delete(m.items, id)
	return nil
}

func (m mockBillRepo) List(_ context.Context, f BillFilter, limit, offset int) ([]*BillListItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*BillListItem
	for _, b := range m.bills {
		switch {
		case f.PatientID != nil && b.PatientID != *f.PatientID,
			f.From != nil && b.BillDate < *f.From,
			f.To != nil && b.BillDate > *f.To:
			continue
		}
		var paid money.Amount
		for _, p := range m.payments[b.ID] {
			paid += p.Amount
		}
		out = append(out, &BillListItem{Bill: *b, PaidAmount: paid, DueAmount: Due(b.TotalAmount, paid)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillDate > out[j].BillDate })
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m mockBillRepo) ReplaceItems(_ context.Context, billID uuid.UUID, items []*BillItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]*BillItem, 0, len(items))
	for i, it := range items {
		it.ID = uuid.New()
		it.BillID = billID
		it.Position = i
		cp := *it
		stored = append(stored, &cp)
	}
	m.items[billID] = stored
	return nil
}

func (m mockBillRepo) GetItems(_ context.Context, billID uuid.UUID) ([]*BillItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*BillItem
	for _, it := range m.items[billID] {
		cp := *it
		out = append(out, &cp)
	}
	return out, nil
}

func (m mockBillRepo) RecomputeTotal(_ context.Context, billID uuid.UUID) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bills[billID]
	if !ok {
		return 0, ErrBillNotFound
	}
	var total money.Amount
	for _, it := range m.items[billID] {
		total += it.Total
	}
	b.TotalAmount = total
	return total, nil
}

// -- Mock Payment Repository --

type mockPaymentRepo struct{ *memLedger }

func (m mockPaymentRepo) Create(_ context.Context, p *Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bills[p.BillID]; !ok {
		return ErrBillNotFound
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.payments[p.BillID] = append(m.payments[p.BillID], &cp)
	return nil
}

func (m mockPaymentRepo) ListByBill(_ context.Context, billID uuid.UUID) ([]*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Payment
	for _, p := range m.payments[billID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PaymentDate > out[j].PaymentDate })
	return out, nil
}

func (m mockPaymentRepo) SumByBill(_ context.Context, billID uuid.UUID) (money.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum money.Amount
	for _, p := range m.payments[billID] {
		sum += p.Amount
	}
	return sum, nil
}

// -- Mock Directory --

type mockDirectory struct {
	patients map[uuid.UUID]*identity.Patient
}

func (m *mockDirectory) DoctorByID(context.Context, uuid.UUID) (*identity.Doctor, error) {
	return nil, identity.ErrDoctorNotFound
}

func (m *mockDirectory) DoctorByUserID(context.Context, uuid.UUID) (*identity.Doctor, error) {
	return nil, apperr.NotFound("doctor profile not found")
}

func (m *mockDirectory) PatientByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	return p, nil
}

func (m *mockDirectory) PatientByUserID(_ context.Context, userID uuid.UUID) (*identity.Patient, error) {
	for _, p := range m.patients {
		if p.UserID != nil && *p.UserID == userID {
			return p, nil
		}
	}
	return nil, apperr.NotFound("patient profile not found")
}

// serialTx stands in for the bill row lock by running one unit of work at
// a time.
type serialTx struct{ mu sync.Mutex }

func (s *serialTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}
