package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/models"
	"github.com/example/hdstore/internal/utils"
)

// ProductHandler manages the product catalog and its inventory lots.
type ProductHandler struct {
	db *gorm.DB
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{db: db}
}

// ListProducts returns the paginated catalog.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Product{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    products,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct returns one catalog entry.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": product})
}

type createProductRequest struct {
	SupplierID  string   `json:"supplier_id"`
	CategoryID  string   `json:"category_id"`
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageLinks  []string `json:"image_links"`
	InputPrice  float64  `json:"input_price"`
	OutputPrice float64  `json:"output_price"`
}

// CreateProduct adds a catalog entry.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Code == "" || req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code and name are required")
	}

	product := models.Product{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		ImageLinks:  pq.StringArray(req.ImageLinks),
		InputPrice:  req.InputPrice,
		OutputPrice: req.OutputPrice,
	}

	if req.SupplierID != "" {
		if id, err := uuid.Parse(req.SupplierID); err == nil {
			product.SupplierID = &id
		}
	}
	if req.CategoryID != "" {
		if id, err := uuid.Parse(req.CategoryID); err == nil {
			product.CategoryID = &id
		}
	}

	if err := h.db.Create(&product).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

// ListBatches returns a product's inventory lots sorted by expiry date
// ascending, the order the storefront displays shelf life in.
func (h *ProductHandler) ListBatches(c *fiber.Ctx) error {
	productID, err := uuid.Parse(c.Query("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "id is required")
	}

	var batches []models.ProductBatch
	if err := h.db.
		Where("product_id = ?", productID).
		Order("expiry_date asc").
		Find(&batches).Error; err != nil {
		return err
	}

	lots := make([]fiber.Map, 0, len(batches))
	for _, b := range batches {
		lots = append(lots, fiber.Map{
			"id":                  b.ID,
			"inventory":           b.Inventory(),
			"barcode":             b.Barcode,
			"batch_number":        b.BatchNumber,
			"date_of_manufacture": b.DateOfManufacture,
			"expiry_date":         b.ExpiryDate,
		})
	}

	return c.JSON(fiber.Map{"success": true, "lots": lots})
}

type createBatchRequest struct {
	ProductID         string    `json:"product_id"`
	InputQuantity     int       `json:"input_quantity"`
	OutputQuantity    int       `json:"output_quantity"`
	DateOfManufacture time.Time `json:"date_of_manufacture"`
	ExpiryDate        time.Time `json:"expiry_date"`
	BatchNumber       string    `json:"batch_number"`
	Barcode           string    `json:"barcode"`
}

// CreateBatch records a new inventory lot for a product.
func (h *ProductHandler) CreateBatch(c *fiber.Ctx) error {
	var req createBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "product_id is required")
	}

	if req.InputQuantity < 0 || req.OutputQuantity < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "quantities must not be negative")
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	batch := models.ProductBatch{
		ProductID:         productID,
		InputQuantity:     req.InputQuantity,
		OutputQuantity:    req.OutputQuantity,
		DateOfManufacture: req.DateOfManufacture,
		ExpiryDate:        req.ExpiryDate,
		BatchNumber:       req.BatchNumber,
		Barcode:           req.Barcode,
	}

	if err := h.db.Create(&batch).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": batch})
}
