package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/middleware"
	"github.com/example/hdstore/internal/models"
)

// CustomerHandler manages customer profile endpoints.
type CustomerHandler struct {
	db *gorm.DB
}

// NewCustomerHandler constructs CustomerHandler.
func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

// GetCustomer returns a customer profile. The token subject must match the
// requested id.
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	customerID, err := h.authorizeOwner(c)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "customer not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"customer": customerResponse(&customer),
	})
}

type updateCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Avatar  string `json:"avatar"`
}

// UpdateCustomer updates profile fields. Email, verification and active
// flags are immutable here.
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	customerID, err := h.authorizeOwner(c)
	if err != nil {
		return err
	}

	var req updateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name must not be empty")
	}

	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid phone number")
	}

	updates := map[string]interface{}{
		"name": req.Name,
	}
	if req.Phone != "" {
		updates["phone"] = req.Phone
	}
	if req.Address != "" {
		updates["address"] = req.Address
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}

	var customer models.Customer
	if err := h.db.First(&customer, "id = ?", customerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "customer not found")
		}
		return err
	}

	if err := h.db.Model(&customer).Updates(updates).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "profile updated",
		"customer": customerResponse(&customer),
	})
}

// authorizeOwner parses the path id and checks it against the token subject.
func (h *CustomerHandler) authorizeOwner(c *fiber.Ctx) (uuid.UUID, error) {
	requested, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid customer id")
	}

	current, ok := middleware.GetCurrentCustomerID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if current != requested {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "you may not access another customer's profile")
	}

	return requested, nil
}
