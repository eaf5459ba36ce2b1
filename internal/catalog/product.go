package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("product not found")
	ErrUnknownSize = errors.New("unknown size")
)

// Size is a purchasable variant of a product. Name is unique within a product.
type Size struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// Product prices are integers in the smallest currency unit.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	ImageRef    string `json:"image_ref,omitempty"`
	Price       int64  `json:"price"`
	Sizes       []Size `json:"sizes,omitempty"`
	InStock     bool   `json:"in_stock"`
}

// Provider is the read-only catalog consumed by the cart and checkout.
type Provider interface {
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id string) (Product, error)
}

// DisplayPrice is the first size's price when the product has sizes.
func (p Product) DisplayPrice() int64 {
	if len(p.Sizes) > 0 {
		return p.Sizes[0].Price
	}
	return p.Price
}

func (p Product) PriceFor(sizeName string) (int64, error) {
	if len(p.Sizes) == 0 {
		if sizeName == "" {
			return p.Price, nil
		}
		return 0, fmt.Errorf("%w: %q for product %s", ErrUnknownSize, sizeName, p.ID)
	}
	for _, s := range p.Sizes {
		if s.Name == sizeName {
			return s.Price, nil
		}
	}
	return 0, fmt.Errorf("%w: %q for product %s", ErrUnknownSize, sizeName, p.ID)
}

func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.Price < 0 {
		return fmt.Errorf("product %s: negative price", p.ID)
	}
	seen := make(map[string]bool, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.Price < 0 {
			return fmt.Errorf("product %s: negative price for size %q", p.ID, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("product %s: duplicate size %q", p.ID, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
