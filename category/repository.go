package category

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/catalog"
	"goflare.io/storefront/models"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	// List returns the "all" pseudo-category followed by the catalog's categories.
	List(ctx context.Context) ([]*models.Category, error)
	// Products lists the products of category id; models.CategoryAll lists every product.
	Products(ctx context.Context, id string) ([]*models.Product, error)
}

type repository struct {
	catalog catalog.Repository
	logger  *zap.Logger
}

func NewRepository(catalog catalog.Repository, logger *zap.Logger) Repository {
	return &repository{
		catalog: catalog,
		logger:  logger,
	}
}

func (r *repository) List(ctx context.Context) ([]*models.Category, error) {
	names, err := r.catalog.ListCategories(ctx)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories := make([]*models.Category, 0, len(names)+1)
	categories = append(categories, &models.Category{ID: models.CategoryAll, Name: "All"})
	for _, name := range names {
		if name == models.CategoryAll {
			continue
		}
		categories = append(categories, &models.Category{ID: name, Name: name})
	}
	return categories, nil
}

func (r *repository) Products(ctx context.Context, id string) ([]*models.Product, error) {
	var (
		products []*models.Product
		err      error
	)
	if id == "" || id == models.CategoryAll {
		products, err = r.catalog.ListProducts(ctx)
	} else {
		products, err = r.catalog.ListProductsByCategory(ctx, id)
	}
	if err != nil {
		r.logger.Error("Failed to list products", zap.String("category", id), zap.Error(err))
		return nil, fmt.Errorf("list products of %s: %w", id, err)
	}
	return products, nil
}
