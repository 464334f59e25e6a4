package domain

import "github.com/shopspring/decimal"

// Product is the catalogue entry returned by a barcode lookup.
type Product struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Barcode           string          `json:"barcode,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	AvailableQuantity int32           `json:"available_quantity"`
}

type LineItem struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Quantity          int32           `json:"quantity"`
	AvailableQuantity int32           `json:"available_quantity"`
}

func NewLineItem(p Product) LineItem {
	return LineItem{
		ProductID:         p.ProductID,
		Name:              p.Name,
		SKU:               p.SKU,
		UnitPrice:         p.UnitPrice,
		Quantity:          1,
		AvailableQuantity: p.AvailableQuantity,
	}
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt32(l.Quantity))
}

// CopyItems returns a copy that shares no backing array with items.
func CopyItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
