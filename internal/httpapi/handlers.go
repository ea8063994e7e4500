package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/common"
	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/obs"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
	"github.com/walldriyan/financial-engine-single/internal/proration"
	"github.com/walldriyan/financial-engine-single/internal/refund"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

// Handler serves the calculation endpoints. Now is injectable for
// tests; a nil Now falls back to time.Now.
type Handler struct {
	Engine   *pricing.Engine
	Validate *validator.Validate
	Now      func() time.Time
}

// Mount registers the calculation routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/calculate/item", h.CalculateItem)
	r.Post("/calculate/cart", h.CalculateCart)
	r.Post("/calculate/proration", h.CalculateProration)
	r.Post("/calculate/refund", h.CalculateRefund)
}

// CalculateItem computes discount, tax and total for a single item.
func (h *Handler) CalculateItem(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var payload ItemCalcRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request", err.Error())
		return
	}

	item, err := payload.Item.toItem()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	ctx, err := payload.Context.toContext(h.now)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	start := time.Now()
	res, err := h.Engine.CalculateItem(item, ctx)
	h.observe("item", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	recordApplied(res.DiscountLines, res.TaxLines)
	common.JSON(w, http.StatusOK, map[string]any{"data": itemResultDTO(res)})
}

// CalculateCart computes the full cart breakdown including global rules.
func (h *Handler) CalculateCart(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var payload CartCalcRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request", err.Error())
		return
	}

	c := cart.New()
	c.CustomerGroup = payload.Context.CustomerGroup
	for _, dto := range payload.Items {
		item, err := dto.toItem()
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		c.AddItem(item)
	}
	ctx, err := payload.Context.toContext(h.now)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	start := time.Now()
	res, err := h.Engine.CalculateCart(c, ctx)
	h.observe("cart", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	for _, item := range res.Items {
		recordApplied(item.DiscountLines, item.TaxLines)
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": cartResultDTO(res)})
}

// CalculateRefund recomputes the original charge and quotes a
// proportional refund for the requested lines, discounts and taxes
// included.
func (h *Handler) CalculateRefund(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var payload RefundCalcRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request", err.Error())
		return
	}

	c := cart.New()
	c.CustomerGroup = payload.Context.CustomerGroup
	for _, dto := range payload.Items {
		item, err := dto.toItem()
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		c.AddItem(item)
	}
	ctx, err := payload.Context.toContext(h.now)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	req, err := payload.toRefundRequest()
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}

	start := time.Now()
	calc, err := h.Engine.CalculateCart(c, ctx)
	if err != nil {
		h.observe("refund", start, err)
		h.writeError(w, err)
		return
	}
	res, err := refund.Process(c, calc, req, h.now())
	h.observe("refund", start, err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": refundResultDTO(res)})
}

// CalculateProration computes a billing-cycle split, or a plan-change
// quote when the request carries a new price.
func (h *Handler) CalculateProration(w http.ResponseWriter, r *http.Request) {
	var payload ProrationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid request", err.Error())
		return
	}

	periodStart, err := time.Parse(time.RFC3339, payload.PeriodStart)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid periodStart", nil)
		return
	}
	periodEnd, err := time.Parse(time.RFC3339, payload.PeriodEnd)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid periodEnd", nil)
		return
	}
	changeAt, err := time.Parse(time.RFC3339, payload.ChangeAt)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid changeAt", nil)
		return
	}

	start := time.Now()
	res, err := proration.Prorate(money.FromMinor(payload.Price), periodStart, periodEnd, changeAt)
	if err != nil {
		h.observe("proration", start, err)
		if errors.Is(err, proration.ErrInvalidPeriod) {
			common.JSONError(w, http.StatusBadRequest, "INVALID_PERIOD", err.Error(), nil)
			return
		}
		h.writeError(w, err)
		return
	}

	out := ProrationResultDTO{
		DaysTotal:     res.DaysTotal,
		DaysRemaining: res.DaysRemaining,
		Unused:        amountDTO(res.Unused),
		Used:          amountDTO(res.Used),
	}
	if payload.NewPrice != nil {
		change, err := proration.Change(money.FromMinor(payload.Price), money.FromMinor(*payload.NewPrice), periodStart, periodEnd, changeAt)
		if err != nil {
			h.observe("proration", start, err)
			h.writeError(w, err)
			return
		}
		credit := amountDTO(change.Credit)
		charge := amountDTO(change.Charge)
		net := amountDTO(change.Net)
		out.Credit, out.Charge, out.Net = &credit, &charge, &net
	}
	h.observe("proration", start, nil)
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handler) observe(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		if obs.CalculationErrors != nil {
			obs.CalculationErrors.WithLabelValues(errorKind(err)).Inc()
		}
	}
	order := "unknown"
	if h.Engine != nil {
		order = h.Engine.Order().String()
	}
	if obs.CalculationsTotal != nil {
		obs.CalculationsTotal.WithLabelValues(operation, order, result).Inc()
	}
	if obs.CalculationDuration != nil {
		obs.CalculationDuration.WithLabelValues(operation).Observe(obs.DurationMillis(time.Since(start)))
	}
}

func recordApplied(discounts []discount.Line, taxes []tax.Line) {
	if obs.DiscountRulesApplied != nil {
		for _, line := range discounts {
			obs.DiscountRulesApplied.WithLabelValues(line.Name).Inc()
		}
	}
	if obs.TaxRatesApplied != nil {
		for _, line := range taxes {
			obs.TaxRatesApplied.WithLabelValues(line.Name).Inc()
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, money.ErrOverflow):
		return "overflow"
	case errors.Is(err, money.ErrInvalidOperation):
		return "invalid_operation"
	case errors.Is(err, discount.ErrConditionEvaluation):
		return "condition_evaluation"
	case errors.Is(err, discount.ErrMalformedTiers):
		return "malformed_tiers"
	case errors.Is(err, proration.ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, refund.ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, refund.ErrQuantityExceeded), errors.Is(err, refund.ErrInvalidQuantity):
		return "invalid_refund"
	default:
		return "internal"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, money.ErrOverflow):
		common.JSONError(w, http.StatusUnprocessableEntity, "OVERFLOW", err.Error(), nil)
	case errors.Is(err, discount.ErrMalformedTiers):
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_TIERS", err.Error(), nil)
	case errors.Is(err, discount.ErrConditionEvaluation):
		common.JSONError(w, http.StatusBadRequest, "CONDITION_EVALUATION", err.Error(), nil)
	case errors.Is(err, money.ErrInvalidOperation):
		common.JSONError(w, http.StatusBadRequest, "INVALID_OPERATION", err.Error(), nil)
	case errors.Is(err, refund.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, refund.ErrQuantityExceeded):
		common.JSONError(w, http.StatusBadRequest, "QUANTITY_EXCEEDED", err.Error(), nil)
	case errors.Is(err, refund.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
