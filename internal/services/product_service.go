package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"veloce/internal/apperrors"
	"veloce/internal/models"
	"veloce/internal/repositories"
	"veloce/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UploadsPath is the public path uploaded images are served under.
const UploadsPath = "/uploads"

// ResolvedImage is where a product image is served from. Stored is the file
// name in the image store, empty for external references.
type ResolvedImage struct {
	URL    string
	Stored string
}

// ImageSource resolves to the URL a product image is served from.
type ImageSource interface {
	Resolve(ctx context.Context, store storage.ImageStore) (ResolvedImage, error)
}

// ImageURL is an external image reference used as-is.
type ImageURL string

// Resolve returns the URL unchanged.
func (u ImageURL) Resolve(context.Context, storage.ImageStore) (ResolvedImage, error) {
	return ResolvedImage{URL: strings.TrimSpace(string(u))}, nil
}

// UploadedImage is an image file sent with the request. BaseURL is the
// scheme and host the request arrived on; the stored file is exposed below it.
type UploadedImage struct {
	Filename string
	Open     func() (io.ReadCloser, error)
	BaseURL  string
}

// Resolve persists the upload and derives its absolute URL.
func (u UploadedImage) Resolve(ctx context.Context, store storage.ImageStore) (ResolvedImage, error) {
	if store == nil {
		return ResolvedImage{}, fmt.Errorf("%w: image uploads are disabled", apperrors.ErrValidation)
	}
	f, err := u.Open()
	if err != nil {
		return ResolvedImage{}, fmt.Errorf("failed to open uploaded image: %w", err)
	}
	defer f.Close()

	name, err := store.Save(ctx, u.Filename, f)
	if err != nil {
		return ResolvedImage{}, err
	}
	return ResolvedImage{
		URL:    strings.TrimRight(u.BaseURL, "/") + UploadsPath + "/" + name,
		Stored: name,
	}, nil
}

// ProductInput carries the scalar fields of a create or update. Every field
// is resupplied on update; there are no partial updates.
type ProductInput struct {
	Name        string
	Category    string
	Price       decimal.Decimal
	Description string
	// Stock is nil when the caller omitted it.
	Stock      *int
	BestSeller bool
	// HoverImage defaults to the primary image when empty.
	HoverImage string
}

// ProductService handles business logic related to the catalog.
type ProductService struct {
	repo   repositories.ProductRepository
	images storage.ImageStore
	log    *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, images storage.ImageStore, log *zap.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		images: images,
		log:    log,
	}
}

// ListProducts returns the products matching filter.
func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return s.repo.List(ctx, filter)
}

// GetProduct retrieves a single product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct validates in, resolves exactly one image and stores the
// product. Stock defaults to models.DefaultStock.
func (s *ProductService) CreateProduct(ctx context.Context, in ProductInput, img ImageSource) (*models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: an image file or imageUrl is required", apperrors.ErrValidation)
	}
	image, err := img.Resolve(ctx, s.images)
	if err != nil {
		return nil, err
	}
	if image.URL == "" {
		return nil, fmt.Errorf("%w: an image file or imageUrl is required", apperrors.ErrValidation)
	}

	stock := models.DefaultStock
	if in.Stock != nil {
		stock = *in.Stock
	}
	product := newProduct(in, image.URL, stock)
	if err := s.repo.Create(ctx, product); err != nil {
		s.discardImage(ctx, image)
		return nil, err
	}
	s.log.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// UpdateProduct overwrites every field of product id. Without an image source
// the image becomes the empty string; the previous image is not kept.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in ProductInput, img ImageSource) (*models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}
	if in.Stock == nil {
		return nil, fmt.Errorf("%w: stock is required", apperrors.ErrValidation)
	}

	var image ResolvedImage
	if img != nil {
		var err error
		if image, err = img.Resolve(ctx, s.images); err != nil {
			return nil, err
		}
	}

	product := newProduct(in, image.URL, *in.Stock)
	product.ID = id
	if err := s.repo.Update(ctx, product); err != nil {
		s.discardImage(ctx, image)
		return nil, err
	}
	s.log.Info("Product updated", zap.Int64("product_id", id))
	return s.repo.GetByID(ctx, id)
}

// DeleteProduct removes product id. Deleting an unknown id succeeds.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		s.log.Debug("Delete of unknown product ignored", zap.Int64("product_id", id))
		return nil
	}
	s.log.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

// discardImage removes an upload whose product was never written.
func (s *ProductService) discardImage(ctx context.Context, image ResolvedImage) {
	if image.Stored == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, image.Stored); err != nil {
		s.log.Warn("Failed to remove orphaned image", zap.String("image", image.Stored), zap.Error(err))
	}
}

func newProduct(in ProductInput, imageURL string, stock int) *models.Product {
	hover := in.HoverImage
	if hover == "" {
		hover = imageURL
	}
	return &models.Product{
		Name:        in.Name,
		Category:    in.Category,
		Price:       in.Price,
		Image:       imageURL,
		HoverImage:  hover,
		Description: in.Description,
		Stock:       stock,
		BestSeller:  in.BestSeller,
	}
}

func validateProductInput(in ProductInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: name is required", apperrors.ErrValidation)
	case !models.IsCategory(in.Category):
		return fmt.Errorf("%w: category must be one of Sandals, Slippers, Sneakers, Formal", apperrors.ErrValidation)
	case in.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
	case in.Stock != nil && *in.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", apperrors.ErrValidation)
	}
	return nil
}
