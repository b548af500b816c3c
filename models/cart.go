package models

import (
	"github.com/stripe/stripe-go/v79"
)

// CartItem 代表購物車中的單個商品項目
type CartItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ImageURL string  `json:"imageUrl"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Cart 代表購物車, 依 ID 唯一並保留加入順序
type Cart []CartItem

// CartSummary 購物車合計
type CartSummary struct {
	Currency stripe.Currency `json:"currency"`
	Subtotal float64         `json:"subtotal"`
	Lines    int             `json:"lines"`
	Units    int             `json:"units"`
}

func NewCartItemFromProduct(p *Product, quantity int) CartItem {
	return CartItem{
		ID:       p.StringID(),
		Name:     p.Title,
		ImageURL: p.Image,
		Price:    p.Price,
		Quantity: quantity,
	}
}

// Index 回傳商品在購物車中的位置, 不存在時為 -1
func (c Cart) Index(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

func (c Cart) Clone() Cart {
	if c == nil {
		return Cart{}
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

func (c Cart) Summary() CartSummary {
	summary := CartSummary{Currency: stripe.CurrencyUSD, Lines: len(c)}
	for _, item := range c {
		summary.Subtotal += item.Price * float64(item.Quantity)
		summary.Units += item.Quantity
	}
	return summary
}
