package relay

import (
	"errors"
	"net/http"

	"github.com/noah-isme/payrelay/internal/gateway"
	"github.com/noah-isme/payrelay/internal/ledger"
	"github.com/noah-isme/payrelay/internal/obs"
	"github.com/noah-isme/payrelay/internal/params"
)

// GetOrder relays the upstream order entity.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	const route = RouteGetOrder
	if !h.allow(w, r, route, http.MethodGet, http.MethodPost) {
		return
	}
	ids, err := params.Resolve(r, route, "orderId")
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	client, err := h.client()
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	order, err := client.GetOrder(r.Context(), ids.Get("orderId"))
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	h.succeed(w, r, route, order, "Order fetched successfully")
}

// GetPayments relays every payment attempt recorded against an order.
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	const route = RouteGetPayments
	if !h.allow(w, r, route, http.MethodGet, http.MethodPost) {
		return
	}
	ids, err := params.Resolve(r, route, "orderId")
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	client, err := h.client()
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	payments, err := client.GetPayments(r.Context(), ids.Get("orderId"))
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	if payments == nil {
		payments = []gateway.Payment{}
	}
	h.succeed(w, r, route, payments, "Payments fetched successfully")
}

// GetPayment relays a single payment attempt.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	const route = RouteGetPayment
	if !h.allow(w, r, route, http.MethodGet, http.MethodPost) {
		return
	}
	ids, err := params.Resolve(r, route, "orderId", "paymentId")
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	client, err := h.client()
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	payment, err := client.GetPayment(r.Context(), ids.Get("orderId"), ids.Get("paymentId"))
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	h.succeed(w, r, route, payment, "Payment fetched successfully")
}

type orderStatusData struct {
	OrderID       string  `json:"orderId"`
	CFOrderID     string  `json:"cfOrderId"`
	OrderStatus   string  `json:"orderStatus"`
	PaymentStatus string  `json:"paymentStatus"`
	IsPaid        bool    `json:"isPaid"`
	OrderAmount   float64 `json:"orderAmount"`
	OrderCurrency string  `json:"orderCurrency"`
}

// OrderStatus reports whether an order has been paid and syncs the ledger row.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	const route = RouteOrderStatus
	if !h.allow(w, r, route, http.MethodGet, http.MethodPost) {
		return
	}
	ids, err := params.Resolve(r, route, "orderId")
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	client, err := h.client()
	if err != nil {
		h.fail(w, r, route, err)
		return
	}
	orderID := ids.Get("orderId")
	order, err := client.GetOrder(r.Context(), orderID)
	if err != nil {
		h.fail(w, r, route, err)
		return
	}

	if status, ok := ledgerStatus(order.OrderStatus); ok && h.Ledger != nil {
		if err := h.Ledger.SetStatus(r.Context(), orderID, status); err != nil {
			evt := h.Logger.Warn()
			if errors.Is(err, ledger.ErrOrderNotFound) {
				evt = h.Logger.Debug()
			}
			obs.RequestFields(evt, r).Err(err).Str("route", route).Str("order_id", orderID).Msg("ledger_status_sync_failed")
		}
	}

	data := orderStatusData{
		OrderID:       order.OrderID,
		CFOrderID:     string(order.CFOrderID),
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.OrderStatus,
		IsPaid:        order.IsPaid(),
		OrderAmount:   order.OrderAmount,
		OrderCurrency: order.OrderCurrency,
	}
	if data.OrderID == "" {
		data.OrderID = orderID
	}
	h.succeed(w, r, route, data, "Order status fetched successfully")
}

func ledgerStatus(upstream string) (ledger.Status, bool) {
	switch upstream {
	case gateway.OrderPaid:
		return ledger.StatusPaid, true
	case gateway.OrderActive:
		return ledger.StatusCreated, true
	case gateway.OrderExpired, gateway.OrderTerminated:
		return ledger.StatusFailed, true
	default:
		return "", false
	}
}
