package product

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storelyhq/storely-backend/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func mustCreateTestProduct(t *testing.T, conn *gorm.DB, name string, price string, enabled bool) *models.Product {
	t.Helper()
	row := &models.Product{
		Name:        name,
		Description: "test listing",
		Price:       decimal.RequireFromString(price),
		Quantity:    10,
		Enabled:     enabled,
	}
	if err := conn.Create(row).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return row
}

func TestRepositoryProductFlow(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.Create(ctx, &models.Product{
		Name:        "Espresso Beans",
		Description: "dark roast",
		Price:       decimal.RequireFromString("12.50"),
		Quantity:    40,
		Enabled:     true,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected autoincrement id to be assigned")
	}
	if created.UUID == uuid.Nil {
		t.Fatal("expected uuid to be generated")
	}

	byID, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Name != "Espresso Beans" {
		t.Fatalf("expected name Espresso Beans, got %s", byID.Name)
	}

	byUUID, err := repo.FindByUUID(ctx, created.UUID)
	if err != nil {
		t.Fatalf("find by uuid: %v", err)
	}
	if byUUID.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, byUUID.ID)
	}

	byUUID.Quantity = 35
	if _, err := repo.Update(ctx, byUUID); err != nil {
		t.Fatalf("update product: %v", err)
	}
	refetched, err := repo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if refetched.Quantity != 35 {
		t.Fatalf("expected quantity 35, got %d", refetched.Quantity)
	}

	if err := repo.Delete(ctx, created.UUID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := repo.FindByID(ctx, created.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found after delete, got %v", err)
	}
}

func TestRepositoryDuplicateNameSurfacesDuplicatedKey(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	mustCreateTestProduct(t, conn, "Espresso Beans", "12.50", true)

	_, err := repo.Create(ctx, &models.Product{
		Name:        "Espresso Beans",
		Description: "another roast",
		Price:       decimal.RequireFromString("9.00"),
		Quantity:    5,
		Enabled:     true,
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestRepositoryListFilters(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	mustCreateTestProduct(t, conn, "Green Tea", "4.00", true)
	mustCreateTestProduct(t, conn, "Black Tea", "4.50", true)
	mustCreateTestProduct(t, conn, "Hidden Tea", "9.99", false)

	all, err := repo.List(ctx, ListFilters{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 enabled products, got %d", len(all))
	}

	named, err := repo.List(ctx, ListFilters{Name: "green"})
	if err != nil {
		t.Fatalf("list by name: %v", err)
	}
	if len(named) != 1 || named[0].Name != "Green Tea" {
		t.Fatalf("expected only Green Tea, got %+v", named)
	}

	withDisabled, err := repo.List(ctx, ListFilters{IncludeDisabled: true})
	if err != nil {
		t.Fatalf("list with disabled: %v", err)
	}
	if len(withDisabled) != 3 {
		t.Fatalf("expected 3 products, got %d", len(withDisabled))
	}
}

func TestRepositoryCategoryResolution(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	category := &models.Category{Name: "Beverages"}
	if err := conn.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}

	found, err := repo.FindCategoryByUUID(ctx, category.UUID)
	if err != nil {
		t.Fatalf("find category: %v", err)
	}
	if found.ID != category.ID {
		t.Fatalf("expected category id %d, got %d", category.ID, found.ID)
	}

	if _, err := repo.FindCategoryByUUID(ctx, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestRepositoryCategoryCreateAndList(t *testing.T) {
	conn := openTestDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	created, err := repo.CreateCategory(ctx, &models.Category{Name: "Beverages"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if created.UUID == uuid.Nil {
		t.Fatal("expected uuid to be generated")
	}

	if _, err := repo.CreateCategory(ctx, &models.Category{Name: "Beverages"}); !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}

	if _, err := repo.CreateCategory(ctx, &models.Category{Name: "Equipment"}); err != nil {
		t.Fatalf("create second category: %v", err)
	}

	rows, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Beverages" {
		t.Fatalf("unexpected categories %+v", rows)
	}
}
