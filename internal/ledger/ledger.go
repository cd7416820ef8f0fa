// Package ledger tracks the local lifecycle row of every order relayed to the
// payment gateway.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOrderNotFound is returned when an update or lookup targets an unknown order.
var ErrOrderNotFound = errors.New("ledger: order not found")

// Status is the local lifecycle state of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusCreated Status = "created"
	StatusFailed  Status = "failed"
	StatusPaid    Status = "paid"
)

// ParseStatus validates a stored status value.
func ParseStatus(value string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(value))); s {
	case StatusPending, StatusCreated, StatusFailed, StatusPaid:
		return s, nil
	default:
		return "", fmt.Errorf("ledger: unknown status %q", value)
	}
}

// Order is one row of the orders table.
type Order struct {
	ID               string
	Amount           float64
	Currency         string
	Status           Status
	CustomerID       string
	CustomerEmail    string
	CustomerPhone    string
	ReturnURL        string
	GatewayOrderID   string
	PaymentSessionID string
	FailureReason    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item is one line of an order.
type Item struct {
	Name      string
	SKU       string
	Quantity  int
	UnitPrice float64
}
