package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/payrelay/internal/common"
	"github.com/noah-isme/payrelay/internal/gateway"
	"github.com/noah-isme/payrelay/internal/ledger"
	"github.com/noah-isme/payrelay/internal/obs"
	"github.com/noah-isme/payrelay/internal/params"
)

const defaultCurrency = "INR"

type createOrderReq struct {
	Amount    float64       `json:"amount" validate:"gte=0.01,lt=10000000000,cents"`
	Currency  string        `json:"currency" validate:"omitempty,len=3,alpha"`
	Customer  customerInput `json:"customer" validate:"required"`
	ReturnURL string        `json:"returnUrl" validate:"omitempty,url"`
	NotifyURL string        `json:"notifyUrl" validate:"omitempty,url"`
	Note      string        `json:"note" validate:"omitempty,max=200"`
	Items     []itemInput   `json:"items" validate:"omitempty,dive"`
}

type customerInput struct {
	ID    string `json:"id" validate:"omitempty,max=50"`
	Name  string `json:"name" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

type itemInput struct {
	Name     string  `json:"name" validate:"required"`
	SKU      string  `json:"sku" validate:"omitempty,max=64"`
	Quantity int     `json:"quantity" validate:"gte=1"`
	Price    float64 `json:"price" validate:"gte=0,lt=10000000000,cents"`
}

type createOrderData struct {
	OrderID          string  `json:"orderId"`
	CFOrderID        string  `json:"cfOrderId"`
	PaymentSessionID string  `json:"paymentSessionId"`
	OrderStatus      string  `json:"orderStatus"`
	OrderAmount      float64 `json:"orderAmount"`
	OrderCurrency    string  `json:"orderCurrency"`
	OrderExpiryTime  *string `json:"orderExpiryTime,omitempty"`
}

var errLedgerUnavailable = errors.New("relay: order ledger not configured")

// CreateOrder records a pending ledger row, registers the order with the
// gateway and returns the checkout session.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	const route = RouteCreateOrder
	if !h.allow(w, r, route, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if !errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %v", params.ErrInvalidBody, err)
		} else {
			err = params.ErrInvalidBody
		}
		h.fail(w, r, route, err)
		return
	}
	validate := h.Validate
	if validate == nil {
		validate = NewValidator()
	}
	if err := validate.Struct(req); err != nil {
		h.fail(w, r, route, common.BadRequest("Invalid order request", validationDetails(err)))
		return
	}

	client, err := h.client()
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	if h.Ledger == nil {
		h.fail(w, r, route, common.Internal("Failed to create order record", errLedgerUnavailable))
		return
	}

	orderID := h.orderID()
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	customerID := strings.TrimSpace(req.Customer.ID)
	if customerID == "" {
		customerID = h.customerID()
	}

	row := ledger.Order{
		ID:            orderID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        ledger.StatusPending,
		CustomerID:    customerID,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: req.Customer.Phone,
		ReturnURL:     req.ReturnURL,
	}
	if err := h.Ledger.CreateOrder(ctx, row); err != nil {
		h.fail(w, r, route, common.Internal("Failed to create order record", err))
		return
	}
	if len(req.Items) > 0 {
		items := make([]ledger.Item, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, ledger.Item{Name: it.Name, SKU: it.SKU, Quantity: it.Quantity, UnitPrice: it.Price})
		}
		if err := h.Ledger.AddItems(ctx, orderID, items); err != nil {
			obs.RequestFields(h.Logger.Warn(), r).Err(err).Str("route", route).Str("order_id", orderID).Msg("ledger_items_failed")
		}
	}

	order, err := client.CreateOrder(ctx, upstreamOrder(orderID, currency, customerID, req))
	if err != nil {
		if markErr := h.Ledger.MarkFailed(ctx, orderID, err.Error()); markErr != nil {
			obs.RequestFields(h.Logger.Warn(), r).Err(markErr).Str("route", route).Str("order_id", orderID).Msg("ledger_mark_failed_failed")
		}
		h.fail(w, r, route, err)
		return
	}

	if err := h.Ledger.MarkCreated(ctx, orderID, string(order.CFOrderID), order.SessionID()); err != nil {
		obs.RequestFields(h.Logger.Warn(), r).Err(err).Str("route", route).Str("order_id", orderID).Msg("ledger_mark_created_failed")
	}

	data := createOrderData{
		OrderID:          orderID,
		CFOrderID:        string(order.CFOrderID),
		PaymentSessionID: order.SessionID(),
		OrderStatus:      order.OrderStatus,
		OrderAmount:      order.OrderAmount,
		OrderCurrency:    order.OrderCurrency,
		OrderExpiryTime:  order.OrderExpiryTime,
	}
	h.succeed(w, r, route, data, "Order created successfully")
}

func upstreamOrder(orderID, currency, customerID string, req createOrderReq) gateway.CreateOrderRequest {
	out := gateway.CreateOrderRequest{
		OrderID:       orderID,
		OrderAmount:   req.Amount,
		OrderCurrency: currency,
		CustomerDetails: gateway.CustomerDetails{
			CustomerID:    customerID,
			CustomerPhone: req.Customer.Phone,
			CustomerName:  optional(req.Customer.Name),
			CustomerEmail: optional(req.Customer.Email),
		},
		OrderNote: optional(req.Note),
	}
	if req.ReturnURL != "" || req.NotifyURL != "" {
		out.OrderMeta = &gateway.OrderMeta{
			ReturnURL: optional(req.ReturnURL),
			NotifyURL: optional(req.NotifyURL),
		}
	}
	return out
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
