package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	"gorm.io/gorm"
)

// ListFilters narrows the public product listing.
type ListFilters struct {
	Name            string
	IncludeDisabled bool
}

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a product by its internal id. Cart entries key products by
// this id, so lookup stays on the primary key.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByUUID loads a product by its public uuid.
func (r *Repository) FindByUUID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&row, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns catalog rows, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).Preload("Category")
	if !filters.IncludeDisabled {
		qb = qb.Where("enabled = ?", true)
	}
	if search := strings.TrimSpace(filters.Name); search != "" {
		qb = qb.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	var rows []models.Product
	err := qb.Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, row *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Update saves an existing product row.
func (r *Repository) Update(ctx context.Context, row *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// Delete soft-deletes a product by uuid.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("uuid = ?", id).Delete(&models.Product{}).Error
}

// CreateCategory inserts a new category row.
func (r *Repository) CreateCategory(ctx context.Context, row *models.Category) (*models.Category, error) {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

// ListCategories returns every category, oldest first.
func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

// FindCategoryByUUID resolves a category by its public uuid.
func (r *Repository) FindCategoryByUUID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var row models.Category
	if err := r.db.WithContext(ctx).First(&row, "uuid = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
