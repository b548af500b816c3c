package category

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"goflare.io/storefront/models"
)

type stubCatalog struct {
	categories []string
	all        []*models.Product
	byCategory map[string][]*models.Product
	err        error
}

func (s *stubCatalog) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return s.all, s.err
}

func (s *stubCatalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return nil, errors.New("not implemented")
}

func (s *stubCatalog) ListCategories(ctx context.Context) ([]string, error) {
	return s.categories, s.err
}

func (s *stubCatalog) ListProductsByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	return s.byCategory[category], s.err
}

func (s *stubCatalog) GetUser(ctx context.Context, id string) (*models.User, error) {
	return nil, errors.New("not implemented")
}

func TestListPrependsAll(t *testing.T) {
	repo := NewRepository(&stubCatalog{categories: []string{"electronics", "jewelery"}}, zaptest.NewLogger(t))

	categories, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{models.CategoryAll, "electronics", "jewelery"}
	if len(categories) != len(want) {
		t.Fatalf("Expected %d categories, got %d", len(want), len(categories))
	}
	for i, id := range want {
		if categories[i].ID != id {
			t.Errorf("Category %d: expected %s, got %s", i, id, categories[i].ID)
		}
	}
	if categories[0].Name != "All" {
		t.Errorf("Expected All, got %s", categories[0].Name)
	}
}

func TestProducts(t *testing.T) {
	stub := &stubCatalog{
		all: []*models.Product{{ID: 1}, {ID: 2}},
		byCategory: map[string][]*models.Product{
			"electronics": {{ID: 9}},
		},
	}
	repo := NewRepository(stub, zaptest.NewLogger(t))
	ctx := context.Background()

	tests := []struct {
		category string
		want     int
	}{
		{category: models.CategoryAll, want: 2},
		{category: "", want: 2},
		{category: "electronics", want: 1},
		{category: "unknown", want: 0},
	}
	for _, tt := range tests {
		products, err := repo.Products(ctx, tt.category)
		if err != nil {
			t.Fatalf("Products(%q) failed: %v", tt.category, err)
		}
		if len(products) != tt.want {
			t.Errorf("Products(%q): expected %d, got %d", tt.category, tt.want, len(products))
		}
	}
}

func TestRepositoryPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := NewRepository(&stubCatalog{err: boom}, zaptest.NewLogger(t, zaptest.Level(zap.FatalLevel)))
	ctx := context.Background()

	if _, err := repo.List(ctx); !errors.Is(err, boom) {
		t.Errorf("Expected boom from List, got %v", err)
	}
	if _, err := repo.Products(ctx, "electronics"); !errors.Is(err, boom) {
		t.Errorf("Expected boom from Products, got %v", err)
	}
}
