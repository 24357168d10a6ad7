package repository

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hivex-io/hivex/internal/model"
)

// assign copies vals into the scan destinations. A nil value zeroes the destination.
func assign(dest []any, vals []any) error {
	if len(dest) != len(vals) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(vals))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if vals[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(vals[i]))
	}
	return nil
}

// mockRow implements pgx.Row.
type mockRow struct {
	vals   []any
	err    error
	scanFn func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.scanFn != nil {
		return m.scanFn(dest...)
	}
	if m.err != nil {
		return m.err
	}
	return assign(dest, m.vals)
}

// mockRows implements pgx.Rows over a fixed result set.
type mockRows struct {
	data      [][]any
	index     int
	errOnScan error
	errOnRows error
	closed    bool
}

func (m *mockRows) Close()     { m.closed = true }
func (m *mockRows) Err() error { return m.errOnRows }

func (m *mockRows) Next() bool {
	if m.index < len(m.data) {
		m.index++
		return true
	}
	return false
}

func (m *mockRows) Scan(dest ...any) error {
	if m.errOnScan != nil {
		return m.errOnScan
	}
	return assign(dest, m.data[m.index-1])
}

func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// mockPool implements database.TxQuerier for both pools and transactions.
type mockPool struct {
	execFn     func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	if m.execFn != nil {
		return m.execFn(ctx, sql, arguments...)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (m *mockPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFn != nil {
		return m.queryRowFn(ctx, sql, args...)
	}
	return &mockRow{err: pgx.ErrNoRows}
}

func (m *mockPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func pgError(code, constraint string) error {
	return &pgconn.PgError{Code: code, ConstraintName: constraint, Message: "mock " + code}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// couponRow renders c in couponColumns order.
func couponRow(c *model.Coupon) []any {
	var memberID *uuid.UUID
	if id, ok := c.Holder.MemberID(); ok {
		memberID = &id
	}
	return []any{
		c.ID, c.Seq, c.Code, c.Title, c.Value, c.Expiry, c.VenueID, c.DealID, memberID,
		c.ClaimedAt, c.Redeemed, c.RedeemedAt, c.Points, c.QRImageID, c.CreatedAt,
	}
}

func sampleCoupon() *model.Coupon {
	return &model.Coupon{
		ID:        uuid.New(),
		Seq:       7,
		Code:      "Ab12",
		Title:     "Two for one",
		Value:     "50%",
		Expiry:    fixedNow.Add(24 * time.Hour),
		VenueID:   uuid.New(),
		DealID:    uuid.New(),
		Holder:    model.Unassigned(),
		Points:    model.DefaultCouponPoints,
		CreatedAt: fixedNow,
	}
}

// dealRow renders d in dealColumns order.
func dealRow(d *model.Deal) []any {
	return []any{
		d.ID, d.Title, d.Value, d.Description, d.Expiry, d.TotalCreated, d.IsActive,
		d.VenueID, d.IssuedAt, d.CreatedAt, d.UpdatedAt,
	}
}
