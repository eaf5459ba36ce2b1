// Package wishlist keeps the products a shopper liked, independent of size.
package wishlist

type Entry struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageRef  string `json:"image_ref,omitempty"`
	Price     int64  `json:"price"`
}

// Set holds at most one entry per ProductID, in insertion order.
type Set struct {
	entries []Entry
}

func New() *Set { return &Set{} }

// Restore rebuilds a set from a snapshot, keeping the first entry per product.
func Restore(entries []Entry) *Set {
	s := New()
	for _, e := range entries {
		s.Add(e)
	}
	return s
}

// Add is idempotent.
func (s *Set) Add(e Entry) {
	if s.index(e.ProductID) < 0 {
		s.entries = append(s.entries, e)
	}
}

func (s *Set) Remove(productID string) {
	if i := s.index(productID); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
	}
}

// Toggle removes e if present and adds it otherwise, reporting whether the
// product is in the set afterwards.
func (s *Set) Toggle(e Entry) bool {
	if i := s.index(e.ProductID); i >= 0 {
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		return false
	}
	s.entries = append(s.entries, e)
	return true
}

func (s *Set) Contains(productID string) bool { return s.index(productID) >= 0 }

func (s *Set) Count() int { return len(s.entries) }

func (s *Set) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Set) index(productID string) int {
	for i, e := range s.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}
