package relay

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Route names double as the first path segment of each handler.
const (
	RouteCreateOrder = "create-order"
	RouteGetOrder    = "get-order"
	RouteGetPayments = "get-payments"
	RouteGetPayment  = "get-payment"
	RouteOrderStatus = "order-status"
)

// Routes lists every relay route in mount order.
var Routes = []string{RouteCreateOrder, RouteGetOrder, RouteGetPayments, RouteGetPayment, RouteOrderStatus}

func (h *Handler) handlerFor(route string) (http.HandlerFunc, bool) {
	switch route {
	case RouteCreateOrder:
		return h.CreateOrder, true
	case RouteGetOrder:
		return h.GetOrder, true
	case RouteGetPayments:
		return h.GetPayments, true
	case RouteGetPayment:
		return h.GetPayment, true
	case RouteOrderStatus:
		return h.OrderStatus, true
	default:
		return nil, false
	}
}

// Mount registers the named routes on r for every method. Each handler is
// reachable at /<route> and /<route>/<identifiers...>.
func (h *Handler) Mount(r chi.Router, routes []string) error {
	for _, route := range routes {
		fn, ok := h.handlerFor(route)
		if !ok {
			return fmt.Errorf("relay: unknown route %q", route)
		}
		r.HandleFunc("/"+route, fn)
		r.HandleFunc("/"+route+"/*", fn)
	}
	return nil
}
