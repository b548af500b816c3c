package models

import "strconv"

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Product 目錄 API 回傳的商品
type Product struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Category    string  `json:"category,omitempty"`
	Rating      *Rating `json:"rating,omitempty"`
}

func (p *Product) StringID() string {
	return strconv.Itoa(p.ID)
}
