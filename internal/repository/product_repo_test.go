package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"shopflow/internal/model"
	"shopflow/pkg/utils"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm: %v", err)
	}

	return gormDB, mock
}

func TestProductRepository_Create(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	product := &model.Product{
		Name:  "Mechanical Keyboard",
		Qty:   10,
		Price: 100000,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), product)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "qty", "price"}).
		AddRow(2, "Mechanical Keyboard", 10, 100000)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WithArgs(uint64(2), 1).
		WillReturnRows(rows)

	product, err := repo.GetByID(context.Background(), 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if product.ID != 2 || product.Qty != 10 || product.Price != 100000 {
		t.Errorf("Unexpected product: %+v", product)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WithArgs(uint64(999), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	product, err := repo.GetByID(context.Background(), 999)
	if err != utils.ErrProductNotFound {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
	if product != nil {
		t.Error("Expected nil product, got non-nil")
	}
}

func TestProductRepository_DecrStock(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DecrStock(context.Background(), nil, 2, 3)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestProductRepository_DecrStock_Insufficient(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	// The guarded update matches no row when qty < requested.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "products" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.DecrStock(context.Background(), nil, 2, 100)
	if err != utils.ErrStockNotEnough {
		t.Errorf("Expected ErrStockNotEnough, got %v", err)
	}
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewProductRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "products"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), 999)
	if err != utils.ErrProductNotFound {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}
