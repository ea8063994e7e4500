package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/httpapi"
	"github.com/walldriyan/financial-engine-single/internal/obs"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

func testRouter(engine *pricing.Engine) http.Handler {
	h := &httpapi.Handler{
		Engine:   engine,
		Validate: validator.New(),
		Now:      func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) },
	}
	r := chi.NewRouter()
	r.Route("/api/v1", func(v chi.Router) {
		h.Mount(v)
	})
	return r
}

func testEngine() *pricing.Engine {
	e := pricing.NewEngine()
	e.AddGlobalTax(tax.Rate{Name: "vat", Bps: 1000, AppliesTo: tax.All()})
	e.AddProductDiscount(discount.Config{
		ProductID: "laptop",
		Stackable: true,
		Rules: []discount.Rule{
			{ID: "promo", Name: "promo", Type: discount.Percent(500), Stackable: true},
		},
	})
	return e
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCalculateItemEndpoint(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/item", httpapi.ItemCalcRequest{
		Item: httpapi.ItemDTO{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data httpapi.ItemResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, int64(200000), envelope.Data.Base.Minor)
	require.Equal(t, int64(10000), envelope.Data.Discount.Minor)
	require.Equal(t, int64(19000), envelope.Data.Tax.Minor)
	require.Equal(t, int64(209000), envelope.Data.Total.Minor)
	require.Equal(t, "2090.00", envelope.Data.Total.Display)
}

func TestCalculateItemRecordsAppliedLines(t *testing.T) {
	obs.MustRegisterDomainMetrics("pricing", prometheus.NewRegistry())
	router := testRouter(testEngine())

	// Counters are shared across the test package, so assert the delta.
	discountBefore := testutil.ToFloat64(obs.DiscountRulesApplied.WithLabelValues("promo"))
	taxBefore := testutil.ToFloat64(obs.TaxRatesApplied.WithLabelValues("vat"))

	rr := postJSON(t, router, "/api/v1/calculate/item", httpapi.ItemCalcRequest{
		Item: httpapi.ItemDTO{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	require.Equal(t, discountBefore+1, testutil.ToFloat64(obs.DiscountRulesApplied.WithLabelValues("promo")))
	require.Equal(t, taxBefore+1, testutil.ToFloat64(obs.TaxRatesApplied.WithLabelValues("vat")))
}

func TestCalculateItemRejectsMissingProduct(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/item", httpapi.ItemCalcRequest{
		Item: httpapi.ItemDTO{UnitPrice: 1000, Quantity: "1"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "VALIDATION")
}

func TestCalculateItemRejectsBadQuantity(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/item", httpapi.ItemCalcRequest{
		Item: httpapi.ItemDTO{ProductID: "laptop", UnitPrice: 1000, Quantity: "-1"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCalculateItemMalformedTiers(t *testing.T) {
	e := pricing.NewEngine()
	e.AddProductDiscount(discount.Config{
		ProductID: "p1",
		Stackable: true,
		Rules: []discount.Rule{
			{ID: "t", Name: "t", Stackable: true, Type: discount.Tiered([]discount.Tier{
				{MinQty: decimal.NewFromInt(1), Bps: 500},
				{MinQty: decimal.NewFromInt(1), Bps: 1000},
			})},
		},
	})
	router := testRouter(e)

	rr := postJSON(t, router, "/api/v1/calculate/item", httpapi.ItemCalcRequest{
		Item: httpapi.ItemDTO{ProductID: "p1", UnitPrice: 1000, Quantity: "2"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "MALFORMED_TIERS")
}

func TestCalculateCartEndpoint(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/cart", httpapi.CartCalcRequest{
		Items: []httpapi.ItemDTO{
			{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"},
			{ProductID: "mouse", UnitPrice: 2500, Quantity: "1"},
		},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data httpapi.CartResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 2)
	require.Equal(t, int64(202500), envelope.Data.Subtotal.Minor)
	require.Equal(t, int64(211750), envelope.Data.GrandTotal.Minor)
}

func TestCalculateRefundEndpoint(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/refund", httpapi.RefundCalcRequest{
		Items: []httpapi.ItemDTO{
			{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"},
		},
		Refund: []httpapi.RefundLineDTO{{ProductID: "laptop", Quantity: "1"}},
		Reason: "damaged unit",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data httpapi.RefundResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	// Line paid 209000 for qty 2; one unit back is half the paid amount.
	require.Equal(t, int64(104500), envelope.Data.Amount.Minor)
	require.Equal(t, "partial", envelope.Data.Kind)
	require.Len(t, envelope.Data.Lines, 1)
}

func TestCalculateRefundUnknownItem(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/refund", httpapi.RefundCalcRequest{
		Items:  []httpapi.ItemDTO{{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"}},
		Refund: []httpapi.RefundLineDTO{{ProductID: "keyboard", Quantity: "1"}},
	})
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "ITEM_NOT_FOUND")
}

func TestCalculateRefundExceedsQuantity(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/refund", httpapi.RefundCalcRequest{
		Items:  []httpapi.ItemDTO{{ProductID: "laptop", UnitPrice: 100000, Quantity: "2"}},
		Refund: []httpapi.RefundLineDTO{{ProductID: "laptop", Quantity: "3"}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "QUANTITY_EXCEEDED")
}

func TestCalculateProrationEndpoint(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/proration", httpapi.ProrationRequest{
		Price:       3000,
		PeriodStart: "2026-06-01T00:00:00Z",
		PeriodEnd:   "2026-07-01T00:00:00Z",
		ChangeAt:    "2026-06-11T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data httpapi.ProrationResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, 30, envelope.Data.DaysTotal)
	require.Equal(t, 20, envelope.Data.DaysRemaining)
	require.Equal(t, int64(2000), envelope.Data.Unused.Minor)
	require.Nil(t, envelope.Data.Net)
}

func TestCalculateProrationPlanChange(t *testing.T) {
	router := testRouter(testEngine())
	newPrice := int64(6000)

	rr := postJSON(t, router, "/api/v1/calculate/proration", httpapi.ProrationRequest{
		Price:       3000,
		NewPrice:    &newPrice,
		PeriodStart: "2026-06-01T00:00:00Z",
		PeriodEnd:   "2026-07-01T00:00:00Z",
		ChangeAt:    "2026-06-11T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var envelope struct {
		Data httpapi.ProrationResultDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data.Net)
	require.Equal(t, int64(2000), envelope.Data.Net.Minor)
}

func TestCalculateProrationInvalidPeriod(t *testing.T) {
	router := testRouter(testEngine())

	rr := postJSON(t, router, "/api/v1/calculate/proration", httpapi.ProrationRequest{
		Price:       3000,
		PeriodStart: "2026-07-01T00:00:00Z",
		PeriodEnd:   "2026-06-01T00:00:00Z",
		ChangeAt:    "2026-06-11T00:00:00Z",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "INVALID_PERIOD")
}
