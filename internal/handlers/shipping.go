package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/middleware"
	"github.com/example/hdstore/internal/models"
)

// ShippingHandler manages order shipment endpoints.
type ShippingHandler struct {
	db *gorm.DB
}

// NewShippingHandler constructs ShippingHandler.
func NewShippingHandler(db *gorm.DB) *ShippingHandler {
	return &ShippingHandler{db: db}
}

type createShippingRequest struct {
	OrderID       string  `json:"order_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerPhone string  `json:"customer_phone"`
	Address       string  `json:"shipping_address"`
	ShippingFee   float64 `json:"shipping_fee"`
	ShippingNotes string  `json:"shipping_notes"`
	PaymentMethod string  `json:"payment_method"`
}

// CreateShipping records the shipment for an order. The shipment is linked
// to the order by id only; a failure after order creation leaves an order
// without a shipment, which the client retries.
func (h *ShippingHandler) CreateShipping(c *fiber.Ctx) error {
	customerID, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createShippingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "order_id is required")
	}

	if req.CustomerName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "recipient name is required")
	}
	if !phonePattern.MatchString(req.CustomerPhone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid recipient phone number")
	}
	if req.Address == "" {
		return fiber.NewError(fiber.StatusBadRequest, "shipping address is required")
	}
	if req.ShippingFee < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "shipping fee must not be negative")
	}

	shipping := models.OrderShipping{
		OrderID:       orderID,
		CustomerID:    &customerID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Address:       req.Address,
		Status:        models.ShippingStatusPending,
		ShippingFee:   req.ShippingFee,
		ShippingNotes: req.ShippingNotes,
		PaymentMethod: req.PaymentMethod,
	}

	if err := h.db.Create(&shipping).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"message":        "shipment created",
		"order_shipping": shipping,
	})
}

// ListShipping returns shipments for the requested customer. The customer_id
// query param is accepted but must name the token subject.
func (h *ShippingHandler) ListShipping(c *fiber.Ctx) error {
	current, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	customerID, err := shippingScope(c.Query("customer_id"), current)
	if err != nil {
		return err
	}

	var shipments []models.OrderShipping
	if err := h.db.
		Where("customer_id = ?", customerID).
		Order("created_at desc").
		Find(&shipments).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "orders": shipments})
}

// shippingScope resolves the customer a listing is scoped to. A blank param
// defaults to the token subject; naming another customer is rejected.
func shippingScope(requested string, current uuid.UUID) (uuid.UUID, error) {
	if requested == "" {
		return current, nil
	}

	id, err := uuid.Parse(requested)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid customer_id")
	}
	if id != current {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "you may not list another customer's shipments")
	}

	return id, nil
}
