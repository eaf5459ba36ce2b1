package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-flowershop/internal/finance"
	"github.com/ariefcatur/go-flowershop/internal/orders"
)

const dateLayout = finance.DateLayout

// AdminHandler serves the back office. Callers reaching it are already
// authorized; access gating lives in front of this service.
type AdminHandler struct {
	Orders  *orders.Service
	Finance *finance.Service
	Log     *zap.Logger
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Get("/orders", h.listOrders)
		r.Patch("/orders/{id}/status", h.transition)
		r.Post("/orders/{id}/override", h.override)
		r.Delete("/orders/{id}", h.deleteOrder)

		r.Get("/transactions", h.listTransactions)
		r.Post("/transactions", h.addTransaction)
		r.Patch("/transactions/{id}", h.updateTransaction)
		r.Delete("/transactions/{id}", h.deleteTransaction)
		r.Get("/finance/summary", h.summary)
	})
}

type statusReq struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type txReq struct {
	Type        string `json:"type" validate:"required,oneof=income expense"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	Description string `json:"description" validate:"required,max=500"`
	Category    string `json:"category" validate:"max=100"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type txPatchReq struct {
	Type        *string `json:"type" validate:"omitempty,oneof=income expense"`
	Amount      *int64  `json:"amount" validate:"omitempty,gt=0"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	var f orders.ListFilter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := orders.ParseStatus(s)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		f.Status = st
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := h.Orders.List(ctx, f)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) transition(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Transition(ctx, chi.URLParam(r, "id"), to, actor(r), middleware.GetReqID(r.Context()))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) override(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.Override(ctx, chi.URLParam(r, "id"), to, actor(r), req.Reason, middleware.GetReqID(r.Context()))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *AdminHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := financeFilter(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	list, err := h.Finance.List(r.Context(), f)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if list == nil {
		list = []finance.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AdminHandler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var req txReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	typ, err := finance.ParseType(req.Type)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	tx := finance.Transaction{Type: typ, Amount: req.Amount, Description: req.Description, Category: req.Category}
	if req.Date != "" {
		if tx.Date, err = parseDate(req.Date); err != nil {
			writeError(w, h.log(), err)
			return
		}
	}
	tx, err = h.Finance.Add(r.Context(), tx)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *AdminHandler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req txPatchReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	p := finance.Patch{Amount: req.Amount, Description: req.Description, Category: req.Category}
	if req.Type != nil {
		typ, err := finance.ParseType(*req.Type)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		p.Type = &typ
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		p.Date = &d
	}
	tx, err := h.Finance.Update(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *AdminHandler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.Finance.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) summary(w http.ResponseWriter, r *http.Request) {
	f, err := financeFilter(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	s, err := h.Finance.Summary(r.Context(), f)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func financeFilter(r *http.Request) (finance.Filter, error) {
	var f finance.Filter
	q := r.URL.Query()
	if t := q.Get("type"); t != "" {
		typ, err := finance.ParseType(t)
		if err != nil {
			return f, err
		}
		f.Type = typ
	}
	if m := q.Get("month"); m != "" {
		if _, err := time.Parse("2006-01", m); err != nil {
			return f, badRequest("month must be YYYY-MM, got %q", m)
		}
		f.Month = m
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, badRequest("date must be YYYY-MM-DD, got %q", s)
	}
	return d, nil
}

func actor(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(headerUser)); u != "" {
		return u
	}
	return "admin"
}

func (h *AdminHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
