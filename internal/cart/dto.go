package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storelyhq/storely-backend/pkg/db/models"
)

// AddedLine reports the line affected by an add, echoing the quantity that
// was just added rather than the cumulative cart quantity.
type AddedLine struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
}

// CartLine is one enriched entry of the cart view.
type CartLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartView is the in-progress cart priced at current catalog prices.
type CartView struct {
	Lines       []CartLine      `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

func newCartView() *CartView {
	return &CartView{
		Lines:       []CartLine{},
		TotalAmount: decimal.Zero,
	}
}

func (v *CartView) addLine(product *models.Product, quantity int) {
	lineTotal := product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	v.Lines = append(v.Lines, CartLine{
		ProductID:   product.UUID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   product.Price,
		LineTotal:   lineTotal,
	})
	v.TotalAmount = v.TotalAmount.Add(lineTotal)
}
