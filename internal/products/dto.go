package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storelyhq/storely-backend/pkg/db/models"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    *CategoryDTO    `json:"category,omitempty"`
	Enabled     bool            `json:"enabled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryDTO exposes the public category payload.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
}

func toCategoryDTO(row *models.Category) *CategoryDTO {
	return &CategoryDTO{
		ID:          row.UUID,
		Name:        row.Name,
		Description: row.Description,
	}
}

func toProductDTO(row *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          row.UUID,
		Name:        row.Name,
		Description: row.Description,
		Price:       row.Price,
		Quantity:    row.Quantity,
		Enabled:     row.Enabled,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Category != nil {
		dto.Category = toCategoryDTO(row.Category)
	}
	return dto
}

func toProductDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toProductDTO(&rows[i]))
	}
	return out
}
