package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/services"
)

// MomoHandler manages MoMo payment endpoints.
type MomoHandler struct {
	db   *gorm.DB
	momo *services.MomoService
}

// NewMomoHandler constructs a MomoHandler.
func NewMomoHandler(db *gorm.DB, momo *services.MomoService) *MomoHandler {
	return &MomoHandler{db: db, momo: momo}
}

type createPaymentRequest struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	OrderInfo string `json:"orderInfo"`
	ExtraData string `json:"extraData"`
}

// CreatePayment signs and forwards a payment-creation request to the
// gateway. The redirect and IPN URLs are derived from the request host.
func (h *MomoHandler) CreatePayment(c *fiber.Ctx) error {
	var req createPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Amount <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	}

	host := c.Hostname()
	scheme := "https"
	if strings.Contains(host, "localhost") {
		scheme = "http"
	}

	result, err := h.momo.CreatePayment(c.Context(), services.CreatePaymentInput{
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		OrderInfo:   req.OrderInfo,
		ExtraData:   req.ExtraData,
		RedirectURL: fmt.Sprintf("%s://%s/payment/success", scheme, host),
		IPNURL:      fmt.Sprintf("%s://%s/api/payment/momo/callback", scheme, host),
	})
	if err != nil {
		log.Printf("[MoMo] payment creation failed: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(result)
}

// Callback receives the gateway's IPN and reconciles it into an order.
func (h *MomoHandler) Callback(c *fiber.Ctx) error {
	var cb services.CallbackPayload
	if err := c.BodyParser(&cb); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	receipt, err := h.momo.ProcessCallback(c.Context(), cb)
	if err != nil {
		if errors.Is(err, services.ErrInvalidSignature) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid signature")
		}

		var failed *services.PaymentFailedError
		if errors.As(err, &failed) {
			return c.JSON(fiber.Map{
				"success": false,
				"message": fmt.Sprintf("payment failed: %s", failed.Message),
			})
		}

		log.Printf("[MoMo] callback processing failed: %v", err)
		return err
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "payment successful",
		"bill_data": receipt,
	})
}
