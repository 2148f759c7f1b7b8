package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/middleware"
	"github.com/example/hdstore/internal/models"
	"github.com/example/hdstore/internal/services"
	"github.com/example/hdstore/internal/utils"
)

// OrderHandler manages checkout order endpoints.
type OrderHandler struct {
	db *gorm.DB
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(db *gorm.DB) *OrderHandler {
	return &OrderHandler{db: db}
}

type orderItemRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type createOrderRequest struct {
	Items         []orderItemRequest `json:"items"`
	TotalAmount   float64            `json:"total_amount"`
	PaymentMethod string             `json:"payment_method"`
	Note          string             `json:"note"`
}

// CreateOrder persists a pending order from the submitted cart snapshot.
// No inventory is reserved here; stock moves only when payment settles.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Items) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "order must contain at least one item")
	}

	for _, item := range req.Items {
		if item.Quantity < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "item quantity must be at least 1")
		}
		if item.Price < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "item price must not be negative")
		}
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = "cash"
	}

	var order models.Order
	err := h.db.Transaction(func(tx *gorm.DB) error {
		orderCode, err := services.GenerateOrderCode(tx, time.Now())
		if err != nil {
			return err
		}

		order = models.Order{
			OrderCode:     orderCode,
			CustomerID:    &customerID,
			TotalAmount:   req.TotalAmount,
			PaymentMethod: paymentMethod,
			Status:        models.OrderStatusPending,
			Note:          req.Note,
		}

		var subtotal float64
		for _, item := range req.Items {
			line := models.OrderItem{
				Quantity: item.Quantity,
				Price:    item.Price,
			}
			if id, err := uuid.Parse(item.ProductID); err == nil {
				line.ProductID = &id
			}
			subtotal += item.Price * float64(item.Quantity)
			order.Items = append(order.Items, line)
		}

		if order.TotalAmount == 0 {
			order.TotalAmount = subtotal
		}

		return tx.Create(&order).Error
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":           order.ID,
			"order_code":   order.OrderCode,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
			"created_at":   order.CreatedAt,
		},
	})
}

// ListOrders returns the authenticated customer's orders.
func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Model(&models.Order{}).Where("customer_id = ?", customerID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetOrder returns a single order owned by the authenticated customer.
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var order models.Order
	if err := h.db.Preload("Items").
		First(&order, "id = ? AND customer_id = ?", id, customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
