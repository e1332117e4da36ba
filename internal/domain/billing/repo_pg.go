package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/money"
)

var ErrBillNotFound = apperr.NotFound("bill not found")

// Amounts are NUMERIC(12,2) in the schema and int64 minor units in Go. The
// conversion happens in SQL.

// =========== Bill Repository ===========

type billRepoPG struct{ pool *pgxpool.Pool }

func NewBillRepoPG(pool *pgxpool.Pool) BillRepository { return &billRepoPG{pool: pool} }

func (r *billRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const billCols = `id, patient_id, to_char(bill_date, 'YYYY-MM-DD'),
	(total_amount * 100)::bigint, created_at, updated_at`

func (r *billRepoPG) scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.PatientID, &b.BillDate, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	if db.IsNotFound(err) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan bill: %w", err)
	}
	return &b, nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	b.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (id, patient_id, bill_date, total_amount)
		VALUES ($1, $2, $3::date, 0)
		RETURNING created_at, updated_at`,
		b.ID, b.PatientID, b.BillDate,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("patient not found")
	}
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	b.TotalAmount = 0
	return nil
}

func (r *billRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return r.scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1`, id))
}

func (r *billRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Bill, error) {
	return r.scanBill(r.conn(ctx).QueryRow(ctx, `SELECT `+billCols+` FROM bills WHERE id = $1 FOR UPDATE`, id))
}

func (r *billRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM bills WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrBillHasPayments
	}
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *billRepoPG) List(ctx context.Context, f BillFilter, limit, offset int) ([]*BillListItem, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	idx := 1

	if f.PatientID != nil {
		where += fmt.Sprintf(` AND b.patient_id = $%d`, idx)
		args = append(args, *f.PatientID)
		idx++
	}
	if f.From != nil {
		where += fmt.Sprintf(` AND b.bill_date >= $%d::date`, idx)
		args = append(args, *f.From)
		idx++
	}
	if f.To != nil {
		where += fmt.Sprintf(` AND b.bill_date <= $%d::date`, idx)
		args = append(args, *f.To)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bills b`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bills: %w", err)
	}

	query := `
		SELECT b.id, b.patient_id, to_char(b.bill_date, 'YYYY-MM-DD'),
			(b.total_amount * 100)::bigint, b.created_at, b.updated_at,
			(COALESCE(p.paid, 0) * 100)::bigint
		FROM bills b
		LEFT JOIN (SELECT bill_id, SUM(amount) AS paid FROM payments GROUP BY bill_id) p ON p.bill_id = b.id` +
		where + fmt.Sprintf(` ORDER BY b.bill_date DESC, b.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()
	var items []*BillListItem
	for rows.Next() {
		var it BillListItem
		if err := rows.Scan(&it.ID, &it.PatientID, &it.BillDate, &it.TotalAmount,
			&it.CreatedAt, &it.UpdatedAt, &it.PaidAmount); err != nil {
			return nil, 0, fmt.Errorf("scan bill: %w", err)
		}
		it.DueAmount = Due(it.TotalAmount, it.PaidAmount)
		items = append(items, &it)
	}
	return items, total, rows.Err()
}

func (r *billRepoPG) ReplaceItems(ctx context.Context, billID uuid.UUID, items []*BillItem) error {
	if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, billID); err != nil {
		return fmt.Errorf("delete bill items: %w", err)
	}

	batch := &pgx.Batch{}
	for i, it := range items {
		it.ID = uuid.New()
		it.BillID = billID
		it.Position = i
		batch.Queue(`
			INSERT INTO bill_items (id, bill_id, position, description, quantity, price, total)
			VALUES ($1, $2, $3, $4, $5, $6::numeric / 100, $7::numeric / 100)`,
			it.ID, it.BillID, it.Position, it.Description, it.Quantity, int64(it.Price), int64(it.Total))
	}
	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert bill items: %w", err)
	}
	return nil
}

// sendBatch runs the batch on the context transaction when there is one.
func (r *billRepoPG) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	var br pgx.BatchResults
	if tx := db.TxFromContext(ctx); tx != nil {
		br = tx.SendBatch(ctx, batch)
	} else {
		br = r.pool.SendBatch(ctx, batch)
	}
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func (r *billRepoPG) GetItems(ctx context.Context, billID uuid.UUID) ([]*BillItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bill_id, position, description, quantity,
			(price * 100)::bigint, (total * 100)::bigint
		FROM bill_items WHERE bill_id = $1 ORDER BY position`, billID)
	if err != nil {
		return nil, fmt.Errorf("list bill items: %w", err)
	}
	defer rows.Close()
	var items []*BillItem
	for rows.Next() {
		var it BillItem
		if err := rows.Scan(&it.ID, &it.BillID, &it.Position, &it.Description, &it.Quantity,
			&it.Price, &it.Total); err != nil {
			return nil, fmt.Errorf("scan bill item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *billRepoPG) RecomputeTotal(ctx context.Context, billID uuid.UUID) (money.Amount, error) {
	var total money.Amount
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE bills SET
			total_amount = (SELECT COALESCE(SUM(total), 0) FROM bill_items WHERE bill_id = $1),
			updated_at = NOW()
		WHERE id = $1
		RETURNING (total_amount * 100)::bigint`, billID,
	).Scan(&total)
	if db.IsNotFound(err) {
		return 0, ErrBillNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("recompute bill total: %w", err)
	}
	return total, nil
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO payments (id, bill_id, payment_mode, amount, payment_date)
		VALUES ($1, $2, $3, $4::numeric / 100, $5::timestamp)
		RETURNING created_at`,
		p.ID, p.BillID, p.Mode, int64(p.Amount), p.PaymentDate,
	).Scan(&p.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return ErrBillNotFound
	}
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepoPG) ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, bill_id, payment_mode, (amount * 100)::bigint,
			to_char(payment_date, 'YYYY-MM-DD HH24:MI:SS'), created_at
		FROM payments WHERE bill_id = $1
		ORDER BY payment_date DESC, created_at DESC`, billID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.BillID, &p.Mode, &p.Amount, &p.PaymentDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}

func (r *paymentRepoPG) SumByBill(ctx context.Context, billID uuid.UUID) (money.Amount, error) {
	var paid money.Amount
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT (COALESCE(SUM(amount), 0) * 100)::bigint FROM payments WHERE bill_id = $1`, billID,
	).Scan(&paid)
	if err != nil {
		return 0, fmt.Errorf("sum payments: %w", err)
	}
	return paid, nil
}
