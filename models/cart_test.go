package models

import (
	"testing"

	"github.com/stripe/stripe-go/v79"
)

func TestCartSummary(t *testing.T) {
	c := Cart{
		{ID: "1", Price: 109.95, Quantity: 2},
		{ID: "2", Price: 22.3, Quantity: 1},
	}

	s := c.Summary()
	if s.Currency != stripe.CurrencyUSD {
		t.Errorf("Expected usd, got %s", s.Currency)
	}
	if s.Lines != 2 || s.Units != 3 {
		t.Errorf("Expected 2 lines and 3 units, got %d and %d", s.Lines, s.Units)
	}
	if diff := s.Subtotal - 242.2; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected subtotal 242.2, got %v", s.Subtotal)
	}

	empty := Cart(nil).Summary()
	if empty.Subtotal != 0 || empty.Lines != 0 {
		t.Errorf("Expected empty summary, got %+v", empty)
	}
}

func TestCartCloneAndIndex(t *testing.T) {
	var nilCart Cart
	if clone := nilCart.Clone(); clone == nil || len(clone) != 0 {
		t.Errorf("Expected empty non-nil clone, got %#v", clone)
	}

	c := Cart{{ID: "1", Quantity: 1}, {ID: "2", Quantity: 1}}
	clone := c.Clone()
	clone[0].Quantity = 9
	if c[0].Quantity != 1 {
		t.Error("Clone must not share the backing array")
	}

	if c.Index("2") != 1 || c.Index("3") != -1 {
		t.Errorf("Unexpected Index results: %d, %d", c.Index("2"), c.Index("3"))
	}
}

func TestNewCartItemFromProduct(t *testing.T) {
	p := &Product{ID: 14, Title: "Monitor", Price: 999.99, Image: "https://img/14"}

	item := NewCartItemFromProduct(p, 2)
	want := CartItem{ID: "14", Name: "Monitor", ImageURL: "https://img/14", Price: 999.99, Quantity: 2}
	if item != want {
		t.Errorf("Expected %+v, got %+v", want, item)
	}
}
