package catalog

import (
	"context"
	"fmt"
)

// Static serves a fixed product list.
type Static struct {
	Products []Product
}

func (s Static) List(context.Context) ([]Product, error) {
	out := make([]Product, len(s.Products))
	copy(out, s.Products)
	return out, nil
}

func (s Static) Get(_ context.Context, id string) (Product, error) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
