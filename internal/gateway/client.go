// Package gateway is the single, version-pinned client for the hosted payment
// gateway REST API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/payrelay/internal/obs"
)

// Operation labels used for tracing and metrics.
const (
	OpCreateOrder = "create_order"
	OpGetOrder    = "get_order"
	OpGetPayments = "get_payments"
	OpGetPayment  = "get_payment"
)

// Config holds the credentials and host selection for a Client.
type Config struct {
	ClientID     string
	ClientSecret string
	Environment  Environment
	// BaseURL overrides the environment host. Used for local mocks and tests.
	BaseURL string
	// HTTPClient is wrapped by resty. Its transport is instrumented with otelhttp.
	HTTPClient *http.Client
}

// Client issues one blocking call per operation. It never retries.
type Client struct {
	rest    *resty.Client
	env     Environment
	baseURL string
}

// New validates credentials and builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, ErrNotConfigured
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = cfg.Environment.BaseURL()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	transport := httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	instrumented := *httpClient
	instrumented.Transport = otelhttp.NewTransport(transport)

	rest := resty.NewWithClient(&instrumented).
		SetBaseURL(base).
		SetRetryCount(0).
		SetHeaders(map[string]string{
			"x-client-id":     cfg.ClientID,
			"x-client-secret": cfg.ClientSecret,
			"x-api-version":   APIVersion,
			"Content-Type":    "application/json",
			"Accept":          "application/json",
		})

	return &Client{rest: rest, env: cfg.Environment, baseURL: base}, nil
}

// BaseURL reports the resolved base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateOrder registers a new order with the gateway.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	var out Order
	err := c.do(ctx, OpCreateOrder, http.MethodPost, "/orders", nil, req, &out)
	return out, err
}

// GetOrder fetches an order by merchant order id.
func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var out Order
	err := c.do(ctx, OpGetOrder, http.MethodGet, "/orders/{orderId}", map[string]string{"orderId": orderID}, nil, &out)
	return out, err
}

// GetPayments lists every payment attempt for an order.
func (c *Client) GetPayments(ctx context.Context, orderID string) ([]Payment, error) {
	out := []Payment{}
	err := c.do(ctx, OpGetPayments, http.MethodGet, "/orders/{orderId}/payments", map[string]string{"orderId": orderID}, nil, &out)
	return out, err
}

// GetPayment fetches one payment attempt of an order.
func (c *Client) GetPayment(ctx context.Context, orderID, paymentID string) (Payment, error) {
	var out Payment
	err := c.do(ctx, OpGetPayment, http.MethodGet, "/orders/{orderId}/payments/{paymentId}",
		map[string]string{"orderId": orderID, "paymentId": paymentID}, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, pathParams map[string]string, body, out any) error {
	if c == nil || c.rest == nil {
		return ErrNotConfigured
	}
	ctx, span := otel.Tracer("gateway.Client").Start(ctx, "Gateway."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.operation", op),
		attribute.String("gateway.environment", c.env.String()),
	)

	start := time.Now()
	result := "error"
	defer func() {
		if obs.GatewayRequestsTotal != nil {
			obs.GatewayRequestsTotal.WithLabelValues(op, result).Inc()
		}
		if obs.GatewayRequestDuration != nil {
			obs.GatewayRequestDuration.WithLabelValues(op).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	req := c.rest.R().SetContext(ctx)
	if len(pathParams) > 0 {
		req.SetPathParams(pathParams)
	}
	if body != nil {
		req.SetBody(body)
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		req.SetHeader("x-request-id", reqID)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, MsgRequestFailure)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = "canceled"
		}
		return &UpstreamError{Operation: op, Message: MsgRequestFailure, Err: err}
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	raw := resp.Body()
	if !resp.IsSuccess() {
		upErr := &UpstreamError{Operation: op, StatusCode: resp.StatusCode(), Message: MsgParseFailure}
		var eb errorBody
		if jsonErr := json.Unmarshal(raw, &eb); jsonErr == nil {
			upErr.Code = eb.Code
			upErr.Type = eb.Type
			if strings.TrimSpace(eb.Message) != "" {
				upErr.Message = eb.Message
			} else {
				upErr.Message = http.StatusText(resp.StatusCode())
			}
		} else {
			upErr.Err = jsonErr
		}
		span.SetStatus(codes.Error, upErr.Message)
		result = "upstream_error"
		return upErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, MsgParseFailure)
		result = "parse_error"
		return &UpstreamError{Operation: op, StatusCode: resp.StatusCode(), Message: MsgParseFailure, Err: err}
	}
	result = "success"
	return nil
}
