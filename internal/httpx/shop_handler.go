package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-flowershop/internal/cart"
	"github.com/ariefcatur/go-flowershop/internal/catalog"
	"github.com/ariefcatur/go-flowershop/internal/orders"
	"github.com/ariefcatur/go-flowershop/internal/wishlist"
)

const (
	headerSession = "X-Session-Id"
	headerUser    = "X-User-Id"
)

// Sessions loads and saves the per-session cart and wishlist.
type Sessions interface {
	LoadCart(ctx context.Context, sessionID string) (*cart.Ledger, error)
	SaveCart(ctx context.Context, sessionID string, l *cart.Ledger) error
	DeleteCart(ctx context.Context, sessionID string) error
	LoadWishlist(ctx context.Context, sessionID string) (*wishlist.Set, error)
	SaveWishlist(ctx context.Context, sessionID string, w *wishlist.Set) error
}

type ShopHandler struct {
	Catalog  catalog.Provider
	Sessions Sessions
	Orders   *orders.Service
	Log      *zap.Logger
}

func (h *ShopHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Get("/cart", h.getCart)
	r.Put("/cart/open", h.setCartOpen)
	r.Post("/cart/items", h.addCartItem)
	r.Patch("/cart/items/quantity", h.updateCartQuantity)
	r.Patch("/cart/items/size", h.updateCartSize)
	r.Delete("/cart/items", h.removeCartItem)
	r.Delete("/cart", h.clearCart)

	r.Get("/wishlist", h.getWishlist)
	r.Post("/wishlist/toggle", h.toggleWishlist)
	r.Delete("/wishlist/{productId}", h.removeWishlist)

	r.Post("/checkout", h.checkout)
	r.Get("/account/orders", h.accountOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

type cartView struct {
	Lines      []cart.Line `json:"lines"`
	TotalItems int         `json:"total_items"`
	TotalPrice int64       `json:"total_price"`
	Open       bool        `json:"open"`
}

func viewCart(l *cart.Ledger) cartView {
	return cartView{Lines: l.Lines(), TotalItems: l.TotalItems(), TotalPrice: l.TotalPrice(), Open: l.IsOpen()}
}

type wishlistView struct {
	Entries []wishlist.Entry `json:"entries"`
	Count   int              `json:"count"`
}

type addItemReq struct {
	ProductID string `json:"product_id" validate:"required"`
	SizeName  string `json:"size_name"`
	Quantity  *int   `json:"quantity,omitempty"`
}

type quantityReq struct {
	ProductID string `json:"product_id" validate:"required"`
	SizeName  string `json:"size_name"`
	Quantity  int    `json:"quantity"`
}

type sizeReq struct {
	ProductID   string `json:"product_id" validate:"required"`
	SizeName    string `json:"size_name"`
	NewSizeName string `json:"new_size_name"`
}

type checkoutReq struct {
	Customer      orders.Customer `json:"customer"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cod bank"`
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *ShopHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ShopHandler) getCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, _ *cart.Ledger) error { return nil })
}

func (h *ShopHandler) setCartOpen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Open bool `json:"open"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	h.withCart(w, r, func(_ context.Context, l *cart.Ledger) error {
		l.SetOpen(req.Open)
		return nil
	})
}

func (h *ShopHandler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	h.withCart(w, r, func(ctx context.Context, l *cart.Ledger) error {
		p, err := h.Catalog.Get(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if !p.InStock {
			return orders.ErrProductUnavailable
		}
		price, err := p.PriceFor(req.SizeName)
		if err != nil {
			return err
		}
		return l.Add(cart.Line{
			ProductID: p.ID,
			Name:      p.Name,
			ImageRef:  p.ImageRef,
			UnitPrice: price,
			SizeName:  req.SizeName,
		}, qty)
	})
}

func (h *ShopHandler) updateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	h.withCart(w, r, func(_ context.Context, l *cart.Ledger) error {
		return l.UpdateQuantity(req.ProductID, req.SizeName, req.Quantity)
	})
}

func (h *ShopHandler) updateCartSize(w http.ResponseWriter, r *http.Request) {
	var req sizeReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	h.withCart(w, r, func(ctx context.Context, l *cart.Ledger) error {
		if _, ok := l.Get(req.ProductID, req.SizeName); !ok {
			return cart.ErrNotFound
		}
		p, err := h.Catalog.Get(ctx, req.ProductID)
		if err != nil {
			return err
		}
		price, err := p.PriceFor(req.NewSizeName)
		if err != nil {
			return err
		}
		return l.UpdateSize(req.ProductID, req.SizeName, req.NewSizeName, price)
	})
}

func (h *ShopHandler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.withCart(w, r, func(_ context.Context, l *cart.Ledger) error {
		l.Remove(q.Get("product_id"), q.Get("size"))
		return nil
	})
}

func (h *ShopHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.withCart(w, r, func(_ context.Context, l *cart.Ledger) error {
		l.Clear()
		return nil
	})
}

// withCart loads the session cart, applies fn and saves it back when fn
// succeeds. The response is always the resulting cart.
func (h *ShopHandler) withCart(w http.ResponseWriter, r *http.Request, fn func(context.Context, *cart.Ledger) error) {
	sid, err := sessionID(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	l, err := h.Sessions.LoadCart(ctx, sid)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if err := fn(ctx, l); err != nil {
		writeError(w, h.log(), err)
		return
	}
	if r.Method != http.MethodGet {
		if err := h.Sessions.SaveCart(ctx, sid, l); err != nil {
			writeError(w, h.log(), err)
			return
		}
	}
	writeJSON(w, http.StatusOK, viewCart(l))
}

func (h *ShopHandler) getWishlist(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	set, err := h.Sessions.LoadWishlist(r.Context(), sid)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, wishlistView{Entries: set.Entries(), Count: set.Count()})
}

func (h *ShopHandler) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	sid, err := sessionID(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	set, err := h.Sessions.LoadWishlist(ctx, sid)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	entry := wishlist.Entry{ProductID: req.ProductID}
	if !set.Contains(req.ProductID) {
		p, err := h.Catalog.Get(ctx, req.ProductID)
		if err != nil {
			writeError(w, h.log(), err)
			return
		}
		entry = wishlist.Entry{ProductID: p.ID, Name: p.Name, ImageRef: p.ImageRef, Price: p.DisplayPrice()}
	}
	liked := set.Toggle(entry)
	if err := h.Sessions.SaveWishlist(ctx, sid, set); err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product_id": req.ProductID, "liked": liked, "count": set.Count()})
}

func (h *ShopHandler) removeWishlist(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	set, err := h.Sessions.LoadWishlist(r.Context(), sid)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	set.Remove(chi.URLParam(r, "productId"))
	if err := h.Sessions.SaveWishlist(r.Context(), sid, set); err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, wishlistView{Entries: set.Entries(), Count: set.Count()})
}

func (h *ShopHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.log(), err)
		return
	}
	method, err := orders.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	sid, err := sessionID(r)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	l, err := h.Sessions.LoadCart(ctx, sid)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	o, err := h.Orders.Checkout(ctx, orders.CheckoutInput{
		Lines:         l.Lines(),
		Customer:      req.Customer,
		PaymentMethod: method,
		OwnerUserID:   r.Header.Get(headerUser),
		TraceID:       middleware.GetReqID(r.Context()),
	})
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	// the order exists now; a stale cart is only an annoyance
	if err := h.Sessions.DeleteCart(ctx, sid); err != nil {
		h.log().Warn("clear cart after checkout", zap.String("order_id", o.ID), zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *ShopHandler) accountOrders(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.Header.Get(headerUser))
	if user == "" {
		writeError(w, h.log(), badRequest("missing %s header", headerUser))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.List(ctx, orders.ListFilter{OwnerUserID: user})
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	if list == nil {
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ShopHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *ShopHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	st, err := h.Orders.Status(ctx, id)
	if err != nil {
		writeError(w, h.log(), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": id, "status": st, "ordinal": st.Ordinal()})
}

func sessionID(r *http.Request) (string, error) {
	sid := strings.TrimSpace(r.Header.Get(headerSession))
	if sid == "" {
		return "", badRequest("missing %s header", headerSession)
	}
	return sid, nil
}

func (h *ShopHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
