package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/payrelay/internal/obs"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store persists orders with raw SQL.
type Store struct {
	DB DB
}

const insertOrderSQL = `INSERT INTO orders (id, amount, currency, status, customer_id, customer_email, customer_phone, return_url)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const insertItemSQL = `INSERT INTO order_items (order_id, name, sku, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5)`

const markCreatedSQL = `UPDATE orders
SET status = $2, gateway_order_id = $3, payment_session_id = $4, updated_at = now()
WHERE id = $1`

const markFailedSQL = `UPDATE orders
SET status = $2, failure_reason = $3, updated_at = now()
WHERE id = $1`

const setStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

const getOrderSQL = `SELECT id, amount::float8, currency, status, customer_id, customer_email, customer_phone,
       return_url, gateway_order_id, payment_session_id, failure_reason, created_at, updated_at
FROM orders WHERE id = $1`

// CreateOrder inserts the initial row of an order.
func (s Store) CreateOrder(ctx context.Context, o Order) (err error) {
	defer func() { obs.ObserveLedgerWrite("create_order", err) }()
	if s.DB == nil {
		return errors.New("ledger: store not configured")
	}
	status := o.Status
	if status == "" {
		status = StatusPending
	}
	_, err = s.DB.Exec(ctx, insertOrderSQL,
		o.ID, o.Amount, o.Currency, string(status),
		nullable(o.CustomerID), nullable(o.CustomerEmail), nullable(o.CustomerPhone), nullable(o.ReturnURL))
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	return nil
}

// AddItems inserts order lines in a single batch.
func (s Store) AddItems(ctx context.Context, orderID string, items []Item) (err error) {
	if len(items) == 0 {
		return nil
	}
	defer func() { obs.ObserveLedgerWrite("add_items", err) }()
	if s.DB == nil {
		return errors.New("ledger: store not configured")
	}
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(insertItemSQL, orderID, item.Name, nullable(item.SKU), item.Quantity, item.UnitPrice)
	}
	results := s.DB.SendBatch(ctx, batch)
	for range items {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("insert items for %s: %w", orderID, execErr)
		}
	}
	if err = results.Close(); err != nil {
		return fmt.Errorf("insert items for %s: %w", orderID, err)
	}
	return nil
}

// MarkCreated records the gateway identifiers after a successful upstream create.
func (s Store) MarkCreated(ctx context.Context, orderID, gatewayOrderID, sessionID string) (err error) {
	defer func() { obs.ObserveLedgerWrite("mark_created", err) }()
	return s.update(ctx, markCreatedSQL, orderID, string(StatusCreated), nullable(gatewayOrderID), nullable(sessionID))
}

// MarkFailed flags the order after the upstream create failed.
func (s Store) MarkFailed(ctx context.Context, orderID, reason string) (err error) {
	defer func() { obs.ObserveLedgerWrite("mark_failed", err) }()
	return s.update(ctx, markFailedSQL, orderID, string(StatusFailed), nullable(reason))
}

// SetStatus moves the order to status.
func (s Store) SetStatus(ctx context.Context, orderID string, status Status) (err error) {
	defer func() { obs.ObserveLedgerWrite("set_status", err) }()
	if _, err = ParseStatus(string(status)); err != nil {
		return err
	}
	return s.update(ctx, setStatusSQL, orderID, string(status))
}

// Get loads an order row.
func (s Store) Get(ctx context.Context, orderID string) (Order, error) {
	if s.DB == nil {
		return Order{}, errors.New("ledger: store not configured")
	}
	var (
		o                                        Order
		status                                   string
		customerID, email, phone, returnURL      pgtype.Text
		gatewayOrderID, sessionID, failureReason pgtype.Text
	)
	err := s.DB.QueryRow(ctx, getOrderSQL, orderID).Scan(
		&o.ID, &o.Amount, &o.Currency, &status, &customerID, &email, &phone,
		&returnURL, &gatewayOrderID, &sessionID, &failureReason, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if o.Status, err = ParseStatus(status); err != nil {
		return Order{}, err
	}
	o.CustomerID = customerID.String
	o.CustomerEmail = email.String
	o.CustomerPhone = phone.String
	o.ReturnURL = returnURL.String
	o.GatewayOrderID = gatewayOrderID.String
	o.PaymentSessionID = sessionID.String
	o.FailureReason = failureReason.String
	return o, nil
}

func (s Store) update(ctx context.Context, sql, orderID string, args ...any) error {
	if s.DB == nil {
		return errors.New("ledger: store not configured")
	}
	tag, err := s.DB.Exec(ctx, sql, append([]any{orderID}, args...)...)
	if err != nil {
		return fmt.Errorf("update order %s: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func nullable(v string) pgtype.Text {
	return pgtype.Text{String: v, Valid: v != ""}
}
