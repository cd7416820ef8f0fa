package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Upstream order statuses.
const (
	OrderActive     = "ACTIVE"
	OrderPaid       = "PAID"
	OrderExpired    = "EXPIRED"
	OrderTerminated = "TERMINATED"
)

// ID is an upstream identifier that may arrive as a JSON string or number.
type ID string

// UnmarshalJSON accepts both quoted and bare numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("gateway: identifier %s is neither string nor number", trimmed)
	}
	*id = ID(n.String())
	return nil
}

// CustomerDetails identifies the paying customer.
type CustomerDetails struct {
	CustomerID    string  `json:"customer_id"`
	CustomerPhone string  `json:"customer_phone"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

// OrderMeta carries redirect and notification hooks for an order.
type OrderMeta struct {
	ReturnURL      *string `json:"return_url,omitempty"`
	NotifyURL      *string `json:"notify_url,omitempty"`
	PaymentMethods *string `json:"payment_methods,omitempty"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	OrderMeta       *OrderMeta        `json:"order_meta,omitempty"`
	OrderNote       *string           `json:"order_note,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

// Order is the upstream order entity.
type Order struct {
	CFOrderID        ID                `json:"cf_order_id,omitempty"`
	OrderID          string            `json:"order_id"`
	Entity           *string           `json:"entity,omitempty"`
	OrderCurrency    string            `json:"order_currency"`
	OrderAmount      float64           `json:"order_amount"`
	OrderStatus      string            `json:"order_status"`
	PaymentSessionID *string           `json:"payment_session_id,omitempty"`
	OrderExpiryTime  *string           `json:"order_expiry_time,omitempty"`
	OrderNote        *string           `json:"order_note,omitempty"`
	CreatedAt        *string           `json:"created_at,omitempty"`
	CustomerDetails  *CustomerDetails  `json:"customer_details,omitempty"`
	OrderMeta        *OrderMeta        `json:"order_meta,omitempty"`
	OrderTags        map[string]string `json:"order_tags,omitempty"`
}

// IsPaid reports whether the gateway considers the order settled by a payment.
func (o Order) IsPaid() bool {
	return o.OrderStatus == OrderPaid
}

// SessionID returns the checkout session identifier or an empty string.
func (o Order) SessionID() string {
	if o.PaymentSessionID == nil {
		return ""
	}
	return *o.PaymentSessionID
}

// Payment is one upstream payment attempt against an order.
type Payment struct {
	CFPaymentID           ID              `json:"cf_payment_id"`
	OrderID               string          `json:"order_id"`
	Entity                *string         `json:"entity,omitempty"`
	PaymentStatus         string          `json:"payment_status"`
	PaymentAmount         *float64        `json:"payment_amount,omitempty"`
	PaymentCurrency       *string         `json:"payment_currency,omitempty"`
	OrderAmount           *float64        `json:"order_amount,omitempty"`
	PaymentMessage        *string         `json:"payment_message,omitempty"`
	PaymentTime           *string         `json:"payment_time,omitempty"`
	PaymentCompletionTime *string         `json:"payment_completion_time,omitempty"`
	PaymentGroup          *string         `json:"payment_group,omitempty"`
	PaymentMethod         json.RawMessage `json:"payment_method,omitempty"`
	IsCaptured            *bool           `json:"is_captured,omitempty"`
	BankReference         *string         `json:"bank_reference,omitempty"`
}
