package billing

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/access"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/metrics"
	"github.com/clinic/clinic/pkg/money"
)

var (
	ErrPaymentExceedsDue = apperr.ErrPaymentExceedsDue
	ErrBillHasPayments   = apperr.ErrBillHasPayments
	ErrTotalBelowPaid    = apperr.ErrTotalBelowPaid
)

const (
	DefaultPaymentMode   = "cash"
	maxDescriptionLength = 255
	maxPaymentModeLength = 60

	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

var (
	datePattern      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`)
)

// ItemInput is one submitted line. Quantity defaults to 1 and Price to 0.
type ItemInput struct {
	Description string        `json:"description"`
	Quantity    *int          `json:"quantity"`
	Price       *money.Amount `json:"price"`
}

type BillInput struct {
	PatientID uuid.UUID   `json:"patient_id"`
	BillDate  string      `json:"bill_date"`
	Items     []ItemInput `json:"items"`
}

type ItemsInput struct {
	Items []ItemInput `json:"items"`
}

// PaymentInput is a payment request. Mode defaults to cash and PaymentDate
// to the current clinic time.
type PaymentInput struct {
	Mode        string        `json:"payment_mode"`
	Amount      *money.Amount `json:"amount"`
	PaymentDate string        `json:"payment_date"`
}

type Service struct {
	bills     BillRepository
	payments  PaymentRepository
	directory identity.Directory
	tx        db.Transactor
	loc       *time.Location
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(bills BillRepository, payments PaymentRepository, dir identity.Directory, tx db.Transactor, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		bills:     bills,
		payments:  payments,
		directory: dir,
		tx:        tx,
		loc:       loc,
		now:       time.Now,
		logger:    logger.With().Str("component", "billing").Logger(),
	}
}

func requireDesk(scope access.Scope) error {
	if !scope.Unrestricted() {
		return apperr.Forbidden("only admin and staff can change bills")
	}
	return nil
}

// normalizeItems validates the submitted lines and computes their totals and
// the sum of them. Line totals and the sum must fit money.Max.
func normalizeItems(in []ItemInput) ([]*BillItem, money.Amount, error) {
	if len(in) == 0 {
		return nil, 0, apperr.Validation("at least one item is required")
	}
	items := make([]*BillItem, 0, len(in))
	var total money.Amount
	for i, raw := range in {
		desc := strings.TrimSpace(raw.Description)
		if desc == "" || utf8.RuneCountInString(desc) > maxDescriptionLength {
			return nil, 0, apperr.Validation("item description must be 1 to %d characters", maxDescriptionLength).With("index", i)
		}
		qty := 1
		if raw.Quantity != nil {
			qty = *raw.Quantity
		}
		if qty < 1 {
			return nil, 0, apperr.Validation("item quantity must be a positive integer").With("index", i)
		}
		var price money.Amount
		if raw.Price != nil {
			price = *raw.Price
		}
		if price < 0 {
			return nil, 0, apperr.Validation("item price must not be negative").With("index", i)
		}
		line, err := price.Mul(qty)
		if err != nil {
			return nil, 0, apperr.Validation("item total exceeds %s", money.Max).With("index", i)
		}
		if total, err = money.Add(total, line); err != nil {
			return nil, 0, apperr.Validation("bill total exceeds %s", money.Max)
		}
		items = append(items, &BillItem{
			Description: desc,
			Quantity:    qty,
			Price:       price,
			Total:       line,
		})
	}
	return items, total, nil
}

func validateDate(field, s string) error {
	if !datePattern.MatchString(s) {
		return apperr.Validation("%s must be YYYY-MM-DD", field)
	}
	if _, err := time.Parse(dateLayout, s); err != nil {
		return apperr.Validation("%s is not a valid date", field)
	}
	return nil
}

// CreateBill writes the bill and its items, then sets the total from the
// stored items.
func (s *Service) CreateBill(ctx context.Context, scope access.Scope, in BillInput) (*BillView, error) {
	if err := requireDesk(scope); err != nil {
		return nil, err
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.BillDate == "" {
		in.BillDate = s.now().In(s.loc).Format(dateLayout)
	}
	if err := validateDate("bill_date", in.BillDate); err != nil {
		return nil, err
	}
	items, _, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}
	if _, err := s.directory.PatientByID(ctx, in.PatientID); err != nil {
		return nil, err
	}

	bill := &Bill{PatientID: in.PatientID, BillDate: in.BillDate}
	var view *BillView
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.bills.Create(ctx, bill); err != nil {
			return err
		}
		if err := s.bills.ReplaceItems(ctx, bill.ID, items); err != nil {
			return err
		}
		if _, err := s.bills.RecomputeTotal(ctx, bill.ID); err != nil {
			return err
		}
		v, err := s.view(ctx, bill.ID)
		view = v
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("bill_id", bill.ID.String()).
		Str("total", view.Bill.TotalAmount.String()).
		Int("items", len(view.Items)).
		Msg("bill created")
	return view, nil
}

func (s *Service) GetBill(ctx context.Context, scope access.Scope, id uuid.UUID) (*BillView, error) {
	view, err := s.view(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.CanAccessBill(view.Bill.PatientID) {
		return nil, apperr.Forbidden("you cannot access this bill")
	}
	return view, nil
}

func (s *Service) view(ctx context.Context, id uuid.UUID) (*BillView, error) {
	bill, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.bills.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByBill(ctx, id)
	if err != nil {
		return nil, err
	}
	var paid money.Amount
	for _, p := range payments {
		paid += p.Amount
	}
	if items == nil {
		items = []*BillItem{}
	}
	if payments == nil {
		payments = []*Payment{}
	}
	return &BillView{Bill: bill, Items: items, Payments: payments, Summary: summarize(bill.TotalAmount, paid)}, nil
}

// ListBills returns bills with their paid and due amounts. Patients only
// see their own bills and doctors see none.
func (s *Service) ListBills(ctx context.Context, scope access.Scope, f BillFilter, limit, offset int) ([]*BillListItem, int, error) {
	if !scope.Unrestricted() && scope.PatientID == nil {
		return nil, 0, apperr.Forbidden("you cannot list bills")
	}
	if f.From != nil {
		if err := validateDate("from", *f.From); err != nil {
			return nil, 0, err
		}
	}
	if f.To != nil {
		if err := validateDate("to", *f.To); err != nil {
			return nil, 0, err
		}
	}
	f.PatientID = scope.BillFilter(f.PatientID)
	return s.bills.List(ctx, f, limit, offset)
}

// ReplaceItems swaps the whole item set of a bill and recomputes its total
// while holding the bill row lock. A new total below the amount already paid
// is rejected.
func (s *Service) ReplaceItems(ctx context.Context, scope access.Scope, id uuid.UUID, in ItemsInput) (*BillView, error) {
	if err := requireDesk(scope); err != nil {
		return nil, err
	}
	items, total, err := normalizeItems(in.Items)
	if err != nil {
		return nil, err
	}

	var view *BillView
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.bills.LockByID(ctx, id); err != nil {
			return err
		}
		paid, err := s.payments.SumByBill(ctx, id)
		if err != nil {
			return err
		}
		if paid > total {
			return ErrTotalBelowPaid.With("paid_amount", paid).With("total_amount", total)
		}
		if err := s.bills.ReplaceItems(ctx, id, items); err != nil {
			return err
		}
		if _, err := s.bills.RecomputeTotal(ctx, id); err != nil {
			return err
		}
		v, err := s.view(ctx, id)
		view = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteBill removes a bill and its items. Bills with payments are kept.
func (s *Service) DeleteBill(ctx context.Context, scope access.Scope, id uuid.UUID) error {
	if err := requireDesk(scope); err != nil {
		return err
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.bills.LockByID(ctx, id); err != nil {
			return err
		}
		paid, err := s.payments.ListByBill(ctx, id)
		if err != nil {
			return err
		}
		if len(paid) > 0 {
			return ErrBillHasPayments.With("payments", len(paid))
		}
		return s.bills.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("bill_id", id.String()).Msg("bill deleted")
	return nil
}

// AddPayment appends a payment if it does not exceed the amount due. The
// due amount is read under the bill row lock so concurrent payments against
// one bill are serialized.
func (s *Service) AddPayment(ctx context.Context, scope access.Scope, billID uuid.UUID, in PaymentInput) (*PaymentReceipt, error) {
	if err := requireDesk(scope); err != nil {
		return nil, err
	}
	if in.Amount == nil || *in.Amount <= 0 {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if *in.Amount > money.Max {
		return nil, apperr.Validation("amount must not exceed %s", money.Max)
	}
	mode := strings.TrimSpace(in.Mode)
	if mode == "" {
		mode = DefaultPaymentMode
	}
	if utf8.RuneCountInString(mode) > maxPaymentModeLength {
		return nil, apperr.Validation("payment_mode must be at most %d characters", maxPaymentModeLength)
	}
	date := strings.TrimSpace(in.PaymentDate)
	if date == "" {
		date = s.now().In(s.loc).Format(timestampLayout)
	}
	if !timestampPattern.MatchString(date) {
		return nil, apperr.Validation("payment_date must be YYYY-MM-DD HH:MM:SS")
	}
	if _, err := time.Parse(timestampLayout, date); err != nil {
		return nil, apperr.Validation("payment_date is not a valid timestamp")
	}

	p := &Payment{BillID: billID, Mode: mode, Amount: *in.Amount, PaymentDate: date}
	var receipt *PaymentReceipt
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		bill, err := s.bills.LockByID(ctx, billID)
		if err != nil {
			return err
		}
		paid, err := s.payments.SumByBill(ctx, billID)
		if err != nil {
			return err
		}
		due := Due(bill.TotalAmount, paid)
		if p.Amount > due {
			return ErrPaymentExceedsDue.With("due_amount", due)
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}
		receipt = &PaymentReceipt{Payment: p, Summary: summarize(bill.TotalAmount, paid+p.Amount)}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentExceedsDue) {
			metrics.RecordPaymentRejection()
			s.logger.Debug().Str("bill_id", billID.String()).Str("amount", p.Amount.String()).Msg("payment exceeds due amount")
		}
		return nil, err
	}

	metrics.RecordPayment()
	s.logger.Info().
		Str("bill_id", billID.String()).
		Str("amount", p.Amount.String()).
		Str("due", receipt.Summary.DueAmount.String()).
		Msg("payment recorded")
	return receipt, nil
}
