package handlers

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"veloce/internal/apperrors"
	"veloce/internal/models"
	"veloce/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service *services.ProductService
	log     *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes registers the product routes. Writes are wrapped in admin.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, admin fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", admin, h.HandleCreateProduct)
	productRoutes.Put("/:id", admin, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", admin, h.HandleDeleteProduct)
}

// HandleListProducts lists products. Unknown filter values are ignored.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	filter := models.ProductFilter{
		Category:  c.Query("category"),
		PriceBand: c.Query("price"),
		Sort:      c.Query("sort"),
	}
	if c.Context().QueryArgs().Has("best_seller") {
		best := parseFlag(c.Query("best_seller"))
		filter.BestSeller = &best
	}

	products, err := h.service.ListProducts(c.UserContext(), filter)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(products)
}

// HandleGetProduct returns a single product.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product from a multipart or URL-encoded form.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	in, err := parseProductForm(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), in, imageSource(c))
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product added successfully",
		"id":      product.ID,
		"product": product,
	})
}

// HandleUpdateProduct overwrites every field of a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	in, err := parseProductForm(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), id, in, imageSource(c))
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// HandleDeleteProduct deletes a product. Unknown ids succeed.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return errorResponse(c, h.log, err)
	}
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return errorResponse(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

func parseProductForm(c *fiber.Ctx) (services.ProductInput, error) {
	in := services.ProductInput{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Category:    strings.TrimSpace(c.FormValue("category")),
		Description: c.FormValue("description"),
		HoverImage:  strings.TrimSpace(c.FormValue("hoverImage")),
		BestSeller:  parseFlag(c.FormValue("best_seller")),
	}

	rawPrice := strings.TrimSpace(c.FormValue("price"))
	if rawPrice == "" {
		return in, fmt.Errorf("%w: price is required", apperrors.ErrValidation)
	}
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return in, fmt.Errorf("%w: price %q is not a number", apperrors.ErrValidation, rawPrice)
	}
	in.Price = price

	if rawStock := strings.TrimSpace(c.FormValue("stock")); rawStock != "" {
		stock, err := strconv.Atoi(rawStock)
		if err != nil {
			return in, fmt.Errorf("%w: stock %q is not an integer", apperrors.ErrValidation, rawStock)
		}
		in.Stock = &stock
	}
	return in, nil
}

// imageSource prefers an uploaded file over an imageUrl field.
func imageSource(c *fiber.Ctx) services.ImageSource {
	if fh, err := c.FormFile("image"); err == nil {
		return services.UploadedImage{
			Filename: fh.Filename,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
			BaseURL:  c.BaseURL(),
		}
	}
	if url := strings.TrimSpace(c.FormValue("imageUrl")); url != "" {
		return services.ImageURL(url)
	}
	return nil
}

// parseFlag accepts 1/0 and true/false; anything else is false.
func parseFlag(v string) bool {
	v = strings.TrimSpace(strings.ToLower(v))
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0
	}
	return v == "on"
}
