package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/pkg/utils"
)

// ProductRepository product repository interface
type ProductRepository interface {
	// Create product
	Create(ctx context.Context, product *model.Product) error

	// Get product by ID
	GetByID(ctx context.Context, id uint64) (*model.Product, error)

	// List products
	List(ctx context.Context) ([]*model.Product, error)

	// Update product
	Update(ctx context.Context, product *model.Product) error

	// Delete product
	Delete(ctx context.Context, id uint64) error

	// Decrement stock (atomic, guarded against negative stock).
	// Runs on tx when given so the decrement can share a transaction
	// with the outbox write.
	DecrStock(ctx context.Context, tx *gorm.DB, id uint64, qty int) error
}

// productRepository product repository implementation
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a product
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetByID gets a product by ID
func (r *productRepository) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// List lists all products
func (r *productRepository) List(ctx context.Context) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error
	return products, err
}

// Update updates a product
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete deletes a product
func (r *productRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrProductNotFound
	}
	return nil
}

// DecrStock decrements stock; the guard keeps quantity from going negative
func (r *productRepository) DecrStock(ctx context.Context, tx *gorm.DB, id uint64, qty int) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND qty >= ?", id, qty).
		Update("qty", gorm.Expr("qty - ?", qty))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return utils.ErrStockNotEnough
	}

	return nil
}
