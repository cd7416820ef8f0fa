package params_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/payrelay/internal/params"
)

func TestResolvePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		body   string
		want   string
	}{
		{name: "path wins over query", method: http.MethodGet, target: "/get-order/ord_path?orderId=ord_query", want: "ord_path"},
		{name: "query when path empty", method: http.MethodGet, target: "/get-order?orderId=ord_query", want: "ord_query"},
		{name: "prefixed route", method: http.MethodGet, target: "/functions/v1/get-order/ord_fn", want: "ord_fn"},
		{name: "query wins over body", method: http.MethodPost, target: "/get-order?orderId=ord_query", body: `{"orderId":"ord_body"}`, want: "ord_query"},
		{name: "camel body", method: http.MethodPost, target: "/get-order", body: `{"orderId":"ord_camel"}`, want: "ord_camel"},
		{name: "snake body", method: http.MethodPost, target: "/get-order", body: `{"order_id":"ord_snake"}`, want: "ord_snake"},
		{name: "empty camel falls back to snake", method: http.MethodPost, target: "/get-order", body: `{"orderId":"","order_id":"ord_snake"}`, want: "ord_snake"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req *http.Request
			if tc.body != "" {
				req = httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			} else {
				req = httptest.NewRequest(tc.method, tc.target, nil)
			}
			values, err := params.Resolve(req, "get-order", "orderId")
			require.NoError(t, err)
			require.Equal(t, tc.want, values.Get("orderId"))
		})
	}
}

func TestResolveMultipleSegments(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/get-payment/ord_1/12345", nil)
	values, err := params.Resolve(req, "get-payment", "orderId", "paymentId")
	require.NoError(t, err)
	require.Equal(t, "ord_1", values.Get("orderId"))
	require.Equal(t, "12345", values.Get("paymentId"))

	req = httptest.NewRequest(http.MethodGet, "/get-payment/ord_1?paymentId=999", nil)
	values, err = params.Resolve(req, "get-payment", "orderId", "paymentId")
	require.NoError(t, err)
	require.Equal(t, "999", values.Get("paymentId"))
}

func TestResolveNumericBodyValue(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/get-payment", strings.NewReader(`{"orderId":"ord_1","payment_id":5114910842415}`))
	values, err := params.Resolve(req, "get-payment", "orderId", "paymentId")
	require.NoError(t, err)
	require.Equal(t, "5114910842415", values.Get("paymentId"))
}

func TestResolveMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/get-order", nil)
	_, err := params.Resolve(req, "get-order", "orderId")
	var missing *params.MissingError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, "orderId", missing.Name)
	require.Equal(t, []string{params.ChannelPath, params.ChannelQuery}, missing.Checked)

	req = httptest.NewRequest(http.MethodPost, "/get-order", strings.NewReader(`{"other":"x"}`))
	_, err = params.Resolve(req, "get-order", "orderId")
	require.True(t, errors.As(err, &missing))
	require.Equal(t, []string{params.ChannelPath, params.ChannelQuery, params.ChannelBody}, missing.Checked)
}

func TestResolveInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/get-order", strings.NewReader(`{not json`))
	_, err := params.Resolve(req, "get-order", "orderId")
	require.ErrorIs(t, err, params.ErrInvalidBody)
}

func TestResolveKeepsBodyReadable(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/get-order", strings.NewReader(`{"orderId":"ord_1"}`))
	_, err := params.Resolve(req, "get-order", "orderId")
	require.NoError(t, err)
	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"orderId":"ord_1"}`, string(body))
}

func TestResolveEmptySegmentKeepsPosition(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/get-payment//pay_1", nil)
	_, err := params.Resolve(req, "get-payment", "orderId", "paymentId")
	var missing *params.MissingError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, "orderId", missing.Name)

	req = httptest.NewRequest(http.MethodGet, "/get-payment//pay_1?orderId=ord_1", nil)
	ids, err := params.Resolve(req, "get-payment", "orderId", "paymentId")
	require.NoError(t, err)
	require.Equal(t, "ord_1", ids.Get("orderId"))
	require.Equal(t, "pay_1", ids.Get("paymentId"))

	req = httptest.NewRequest(http.MethodGet, "/get-payment/%20/pay_1?orderId=ord_2", nil)
	ids, err = params.Resolve(req, "get-payment", "orderId", "paymentId")
	require.NoError(t, err)
	require.Equal(t, "ord_2", ids.Get("orderId"))
	require.Equal(t, "pay_1", ids.Get("paymentId"))
}

func TestSnakeCase(t *testing.T) {
	require.Equal(t, "order_id", params.SnakeCase("orderId"))
	require.Equal(t, "payment_id", params.SnakeCase("paymentId"))
	require.Equal(t, "cf_payment_id", params.SnakeCase("cfPaymentId"))
	require.Equal(t, "amount", params.SnakeCase("amount"))
}
