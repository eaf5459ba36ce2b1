// Package cart holds the shopper's line items for a single session.
//
// A Ledger is single-owner: it is loaded for one session, mutated by one
// request and saved back. It carries no locks.
package cart

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotFound      = errors.New("cart line not found")
	ErrInvalidAmount = errors.New("quantity must be positive")
)

// Key identifies a line. Two lines are the same entity iff both fields match.
type Key struct {
	ProductID string
	SizeName  string
}

type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageRef  string `json:"image_ref,omitempty"`
	UnitPrice int64  `json:"unit_price"`
	SizeName  string `json:"size_name"`
	Quantity  int    `json:"quantity"`
}

func (l Line) Key() Key { return Key{ProductID: l.ProductID, SizeName: l.SizeName} }

// Subtotal is UnitPrice * Quantity.
func (l Line) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

type Ledger struct {
	lines  []Line
	open   bool
	onOpen func()
}

func New() *Ledger { return &Ledger{} }

// Restore rebuilds a ledger from a persisted snapshot. Duplicate keys are
// merged and lines with a non-positive quantity are dropped.
func Restore(lines []Line) *Ledger {
	l := New()
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			continue
		}
		if i := l.index(ln.Key()); i >= 0 {
			if q, ok := addQuantity(l.lines[i].Quantity, ln.Quantity); ok {
				l.lines[i].Quantity = q
			}
			continue
		}
		l.lines = append(l.lines, ln)
	}
	return l
}

// OnOpen registers fn to run every time Add marks the cart open.
func (l *Ledger) OnOpen(fn func()) { l.onOpen = fn }

func (l *Ledger) IsOpen() bool { return l.open }

func (l *Ledger) SetOpen(open bool) { l.open = open }

// Add merges quantity into the line keyed by (item.ProductID, item.SizeName),
// inserting a new line when none exists. item.Quantity is ignored.
func (l *Ledger) Add(item Line, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: add %d of %s", ErrInvalidAmount, quantity, item.ProductID)
	}
	if i := l.index(item.Key()); i >= 0 {
		q, ok := addQuantity(l.lines[i].Quantity, quantity)
		if !ok {
			return fmt.Errorf("%w: %s/%s quantity overflows", ErrInvalidAmount, item.ProductID, item.SizeName)
		}
		l.lines[i].Quantity = q
	} else {
		item.Quantity = quantity
		l.lines = append(l.lines, item)
	}
	l.open = true
	if l.onOpen != nil {
		l.onOpen()
	}
	return nil
}

// Remove is a no-op when the line is absent.
func (l *Ledger) Remove(productID, sizeName string) {
	if i := l.index(Key{productID, sizeName}); i >= 0 {
		l.lines = append(l.lines[:i], l.lines[i+1:]...)
	}
}

// UpdateQuantity sets the absolute quantity. quantity <= 0 removes the line.
func (l *Ledger) UpdateQuantity(productID, sizeName string, quantity int) error {
	if quantity <= 0 {
		l.Remove(productID, sizeName)
		return nil
	}
	i := l.index(Key{productID, sizeName})
	if i < 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, productID, sizeName)
	}
	l.lines[i].Quantity = quantity
	return nil
}

// UpdateSize re-keys a line to newSize. When a line already exists under the
// new key the quantities are summed there and the source line is dropped.
// The destination always takes newUnitPrice.
func (l *Ledger) UpdateSize(productID, oldSize, newSize string, newUnitPrice int64) error {
	src := l.index(Key{productID, oldSize})
	if src < 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, productID, oldSize)
	}
	if oldSize == newSize {
		l.lines[src].UnitPrice = newUnitPrice
		return nil
	}
	dst := l.index(Key{productID, newSize})
	if dst < 0 {
		l.lines[src].SizeName = newSize
		l.lines[src].UnitPrice = newUnitPrice
		return nil
	}
	q, ok := addQuantity(l.lines[dst].Quantity, l.lines[src].Quantity)
	if !ok {
		return fmt.Errorf("%w: %s/%s quantity overflows", ErrInvalidAmount, productID, newSize)
	}
	l.lines[dst].Quantity = q
	l.lines[dst].UnitPrice = newUnitPrice
	l.lines = append(l.lines[:src], l.lines[src+1:]...)
	return nil
}

func (l *Ledger) Clear() { l.lines = nil }

// Lines returns a copy in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Ledger) Len() int { return len(l.lines) }

func (l *Ledger) Get(productID, sizeName string) (Line, bool) {
	if i := l.index(Key{productID, sizeName}); i >= 0 {
		return l.lines[i], true
	}
	return Line{}, false
}

// TotalItems is the sum of quantities, not the number of lines.
func (l *Ledger) TotalItems() int {
	n := 0
	for _, ln := range l.lines {
		n += ln.Quantity
	}
	return n
}

func (l *Ledger) TotalPrice() int64 {
	var total int64
	for _, ln := range l.lines {
		total += ln.Subtotal()
	}
	return total
}

// addQuantity sums two positive quantities, reporting false on overflow.
func addQuantity(a, b int) (int, bool) {
	if a > math.MaxInt-b {
		return 0, false
	}
	return a + b, true
}

func (l *Ledger) index(k Key) int {
	for i, ln := range l.lines {
		if ln.Key() == k {
			return i
		}
	}
	return -1
}
