package users

import (
	"context"
	"time"

	"github.com/storelyhq/storely-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists shopper and admin accounts.
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

// Create inserts a shopper account.
func (r *Repository) Create(ctx context.Context, record *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByEmail loads a shopper by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByID loads a shopper by internal id.
func (r *Repository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var row models.User
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkEmailVerified stamps the verification time on the account.
func (r *Repository) MarkEmailVerified(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("email_verified_at", at).
		Error
}

// UpdatePassword replaces the stored password hash on the account.
func (r *Repository) UpdatePassword(ctx context.Context, id uint, hashed string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Update("password", hashed).
		Error
}

// FindAdminByEmail loads a back-office account by email.
func (r *Repository) FindAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var row models.Admin
	if err := r.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
