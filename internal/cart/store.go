// Package cart holds the line items of the sale being rung up.
package cart

import (
	"sort"

	d "github.com/fjod/go_pos/domain"
)

// Store is keyed by product id. It is not safe for concurrent use; the checkout machine
// serialises every call.
type Store struct {
	items map[int64]*d.LineItem
}

func New() *Store {
	return &Store{items: make(map[int64]*d.LineItem)}
}

// Add inserts the product with quantity 1 or increments an existing line. Increments past the
// available quantity are silently ignored. It reports whether the cart changed.
func (s *Store) Add(p d.Product) bool {
	if item, exists := s.items[p.ProductID]; exists {
		if item.Quantity >= item.AvailableQuantity {
			return false
		}
		item.Quantity++
		return true
	}
	if p.AvailableQuantity < 1 {
		return false
	}
	item := d.NewLineItem(p)
	s.items[p.ProductID] = &item
	return true
}

// SetQuantity removes the line when n <= 0 and rejects n above the available quantity.
func (s *Store) SetQuantity(productID int64, n int32) error {
	item, exists := s.items[productID]
	if n <= 0 {
		delete(s.items, productID)
		return nil
	}
	if !exists {
		return ErrItemNotFound
	}
	if n > item.AvailableQuantity {
		return ErrExceedsAvailable
	}
	item.Quantity = n
	return nil
}

// Remove deletes the line if present and reports whether it was.
func (s *Store) Remove(productID int64) bool {
	if _, exists := s.items[productID]; !exists {
		return false
	}
	delete(s.items, productID)
	return true
}

func (s *Store) Clear() {
	s.items = make(map[int64]*d.LineItem)
}

func (s *Store) Get(productID int64) (d.LineItem, bool) {
	item, exists := s.items[productID]
	if !exists {
		return d.LineItem{}, false
	}
	return *item, true
}

// Items returns a copy ordered by product id.
func (s *Store) Items() []d.LineItem {
	out := make([]d.LineItem, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

func (s *Store) IsEmpty() bool {
	return len(s.items) == 0
}
