package orders

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ariefcatur/go-flowershop/internal/cart"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrInvalidCheckout    = errors.New("invalid checkout")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrUnknownPayment     = errors.New("unknown payment method")
)

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentBank PaymentMethod = "bank"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCOD, PaymentBank:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPayment, s)
}

// InitialStatus: bank transfers wait for confirmation, COD starts as new.
func InitialStatus(m PaymentMethod) Status {
	if m == PaymentBank {
		return StatusPendingPayment
	}
	return StatusNew
}

type Customer struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required,max=30"`
	Address string `json:"address" validate:"required,max=500"`
	Note    string `json:"note,omitempty" validate:"max=500"`
}

func (c Customer) validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing customer %s", ErrInvalidCheckout, strings.Join(missing, ", "))
	}
	return nil
}

// OrderLine is the frozen copy of a cart line taken at checkout.
type OrderLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageRef  string `json:"image_ref,omitempty"`
	SizeName  string `json:"size_name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID            string        `json:"id"`
	Items         []OrderLine   `json:"items"`
	Customer      Customer      `json:"customer"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	ShippingFee   int64         `json:"shipping_fee"`
	TotalPrice    int64         `json:"total_price"`
	Status        Status        `json:"status"`
	OwnerUserID   string        `json:"owner_user_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// NewOrder snapshots lines into an order with a frozen total. The ID is left
// for the store to assign.
func NewOrder(lines []cart.Line, c Customer, method PaymentMethod, shippingFee int64, owner string, now time.Time) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrCartEmpty
	}
	if err := c.validate(); err != nil {
		return Order{}, err
	}
	if method != PaymentCOD && method != PaymentBank {
		return Order{}, fmt.Errorf("%w: %q", ErrUnknownPayment, method)
	}
	if shippingFee < 0 {
		return Order{}, fmt.Errorf("%w: negative shipping fee", ErrInvalidCheckout)
	}

	o := Order{
		Items:         make([]OrderLine, 0, len(lines)),
		Customer:      c,
		PaymentMethod: method,
		ShippingFee:   shippingFee,
		Status:        InitialStatus(method),
		OwnerUserID:   owner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	total := shippingFee
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: invalid quantity for %s", ErrInvalidCheckout, ln.ProductID)
		}
		if ln.UnitPrice < 0 {
			return Order{}, fmt.Errorf("%w: negative price for %s", ErrInvalidCheckout, ln.ProductID)
		}
		sub, ok := subtotal(ln.UnitPrice, ln.Quantity)
		if !ok || total > math.MaxInt64-sub {
			return Order{}, fmt.Errorf("%w: order total overflows", ErrInvalidCheckout)
		}
		o.Items = append(o.Items, OrderLine{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			ImageRef:  ln.ImageRef,
			SizeName:  ln.SizeName,
			UnitPrice: ln.UnitPrice,
			Quantity:  ln.Quantity,
		})
		total += sub
	}
	o.TotalPrice = total
	return o, nil
}

func subtotal(price int64, qty int) (int64, bool) {
	if price != 0 && int64(qty) > math.MaxInt64/price {
		return 0, false
	}
	return price * int64(qty), true
}

// ItemsTotal is the goods subtotal, shipping excluded.
func (o Order) ItemsTotal() int64 {
	return o.TotalPrice - o.ShippingFee
}
