package cart

import (
	"fmt"

	"github.com/quartier-aromes/shop/internal/models"
)

// Line is a cart row for display, regardless of where it lives. Persisted
// lines carry their database id; transient session lines have ItemID 0 and
// a synthetic ref.
type Line struct {
	ItemID    uint           `json:"item_id,omitempty"`
	Ref       string         `json:"ref"`
	ProductID uint           `json:"product_id"`
	Quantity  uint           `json:"quantity"`
	Product   models.Product `json:"product"`
	LineTotal float64        `json:"line_total"`
}

func PersistedLine(item models.CartItem, product models.Product) Line {
	return Line{
		ItemID:    item.ID,
		Ref:       fmt.Sprintf("%d", item.ID),
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
		Product:   product,
		LineTotal: product.Price * float64(item.Quantity),
	}
}

func TransientLine(product models.Product, quantity uint) Line {
	return Line{
		Ref:       fmt.Sprintf("session_%d", product.ID),
		ProductID: product.ID,
		Quantity:  quantity,
		Product:   product,
		LineTotal: product.Price * float64(quantity),
	}
}
