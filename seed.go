package main

import (
	"context"
	"fmt"

	"veloce/internal/models"
	"veloce/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const unsplash = "https://images.unsplash.com/"

func unsplashImage(id string) string {
	return unsplash + id + "?q=80&w=800&auto=format&fit=crop"
}

// demoProducts is the initial storefront catalog.
func demoProducts() []models.Product {
	p := func(name, category string, price int64, image, hover string, best bool) models.Product {
		return models.Product{
			Name:       name,
			Category:   category,
			Price:      decimal.NewFromInt(price),
			Image:      unsplashImage(image),
			HoverImage: unsplashImage(hover),
			Stock:      models.DefaultStock,
			BestSeller: best,
		}
	}
	return []models.Product{
		p("Velvet Ease", models.CategorySandals, 180, "photo-1543163521-1bf539c55dd2", "photo-1543163521-1bf539c55dd2", true),
		p("Summer Breeze", models.CategorySandals, 150, "photo-1562273138-f46be4ebdf6c", "photo-1562273138-f46be4ebdf6c", false),
		p("Golden Hour", models.CategorySandals, 220, "photo-1535043934128-cf0b28d52f95", "photo-1535043934128-cf0b28d52f95", false),

		p("Cozy Night", models.CategorySlippers, 90, "photo-1516478177764-9fe5bd7e9717", "photo-1516478177764-9fe5bd7e9717", false),
		p("Luxe Slide", models.CategorySlippers, 120, "photo-1560769619-37e7745814e5", "photo-1560769619-37e7745814e5", false),
		p("Home Comfort", models.CategorySlippers, 85, "photo-1595341888016-a392ef81b7de", "photo-1595341888016-a392ef81b7de", false),

		p("Urban Runner", models.CategorySneakers, 250, "photo-1560769629-975e127dfc17", "photo-1560769629-975e127dfc17", true),
		p("Street King", models.CategorySneakers, 280, "photo-1549298916-b41d501d3772", "photo-1549298916-b41d501d3772", false),
		p("Retro High", models.CategorySneakers, 280, "photo-1607522370275-f14bc3a5d288", "photo-1595950653106-6c9ebd614d3a", false),

		p("Oxford Classic", models.CategoryFormal, 350, "photo-1614252369475-531eba835eb1", "photo-1614252369475-531eba835eb1", true),
		p("Derby Elite", models.CategoryFormal, 320, "photo-1478146896981-b80c463e4381", "photo-1478146896981-b80c463e4381", false),
		p("Monk Strap Pro", models.CategoryFormal, 380, "photo-1449505278894-297fdb3edbc1", "photo-1560343090-f0409e92791a", false),
	}
}

// seedProducts populates an empty catalog with the demo products.
func seedProducts(ctx context.Context, repo repositories.ProductRepository, log *zap.Logger) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		return nil
	}

	products := demoProducts()
	for i := range products {
		if err := repo.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
	}
	log.Info("Seeded demo catalog", zap.Int("products", len(products)))
	return nil
}
