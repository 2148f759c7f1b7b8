package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/hdstore/internal/config"
	"github.com/example/hdstore/internal/models"
	"github.com/example/hdstore/internal/services"
	"github.com/example/hdstore/internal/utils"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^(0|\+84)[0-9]{9,10}$`)
)

const otpTTL = 10 * time.Minute

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer *services.MailerService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mailer *services.MailerService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, mailer: mailer}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register creates a new, unverified customer account.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "name, email and password are required")
	}

	if !emailPattern.MatchString(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
	}

	if len(req.Password) < 6 {
		return fiber.NewError(fiber.StatusBadRequest, "password must be at least 6 characters")
	}

	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid phone number")
	}

	var existing models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "email is already registered")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	customer := models.Customer{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Phone:        req.Phone,
		Address:      req.Address,
		IsActive:     true,
		IsVerified:   false,
	}

	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "account created",
		"data":    customerResponse(&customer),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a verified, active customer and issues a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	if !emailPattern.MatchString(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "email is not registered")
		}
		return err
	}

	if err := checkLoginAllowed(&customer, req.Password); err != nil {
		if errors.Is(err, errNeedVerification) {
			// Distinguished from a plain 401 so the client can redirect to
			// the verification screen.
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success":           false,
				"message":           "account is not verified",
				"need_verification": true,
				"email":             customer.Email,
			})
		}
		return err
	}

	now := time.Now()
	if err := h.db.Model(&customer).Update("last_login", &now).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, customer.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	h.setSessionCookie(c, token)

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "login successful",
		"token":    token,
		"customer": customerResponse(&customer),
	})
}

type sendOTPRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SendOTP issues a 6-digit verification code, persists it on the customer
// record with a 10-minute expiry, and emails it. A verified account cannot
// request a code for its email again.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	if !emailPattern.MatchString(req.Email) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid email address")
	}

	var customer models.Customer
	err := h.db.Where("email = ?", req.Email).First(&customer).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	exists := err == nil

	if exists && customer.IsVerified {
		return fiber.NewError(fiber.StatusConflict, "email is already registered")
	}

	code, err := generateOTP()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate verification code")
	}
	expiresAt := time.Now().Add(otpTTL)

	if exists {
		customer.OTPCode = &code
		customer.OTPExpiresAt = &expiresAt
		if req.Name != "" {
			customer.Name = req.Name
		}
		if err := h.db.Save(&customer).Error; err != nil {
			return err
		}
	} else {
		name := req.Name
		if name == "" {
			name = "New customer"
		}

		// The account needs a password column before verification supplies a
		// real one; a random throwaway fills it.
		placeholder, err := randomPassword()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to create account")
		}
		passwordHash, err := utils.HashPassword(placeholder)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to create account")
		}

		customer = models.Customer{
			Name:         name,
			Email:        req.Email,
			PasswordHash: passwordHash,
			IsActive:     true,
			IsVerified:   false,
			OTPCode:      &code,
			OTPExpiresAt: &expiresAt,
		}
		if err := h.db.Create(&customer).Error; err != nil {
			return err
		}
	}

	// The OTP is already persisted at this point; a delivery failure leaves
	// it in place for a retry before expiry.
	if err := h.mailer.SendOTP(customer.Email, customer.Name, code); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to send verification email")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "verification code sent",
		"email":   customer.Email,
		"expires": expiresAt,
	})
}

type verifyOTPRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

// VerifyOTP checks the pending code and, on success, marks the account
// verified, optionally sets the real password, clears the OTP and issues a
// session token.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and verification code are required")
	}

	var customer models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fiber.NewError(fiber.StatusNotFound, "email is not registered")
		}
		return err
	}

	if err := checkOTP(&customer, req.OTP, time.Now()); err != nil {
		return err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"is_verified":    true,
		"otp_code":       nil,
		"otp_expires_at": nil,
		"last_login":     &now,
	}

	if len(req.Password) >= 6 {
		passwordHash, err := utils.HashPassword(req.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
		}
		updates["password_hash"] = passwordHash
	}

	if err := h.db.Model(&customer).Updates(updates).Error; err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, customer.ID, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	h.setSessionCookie(c, token)

	customer.IsVerified = true
	customer.LastLogin = &now

	return c.JSON(fiber.Map{
		"success":  true,
		"message":  "verification successful",
		"token":    token,
		"customer": customerResponse(&customer),
	})
}

// errNeedVerification marks an unverified account so Login can answer with
// the verification redirect body instead of a plain error.
var errNeedVerification = errors.New("account is not verified")

// checkLoginAllowed is the gate between a looked-up account and a session
// token. Unverified and locked accounts never pass, wrong passwords neither.
func checkLoginAllowed(customer *models.Customer, password string) error {
	if !customer.IsVerified {
		return errNeedVerification
	}
	if !customer.IsActive {
		return fiber.NewError(fiber.StatusForbidden, "account is locked")
	}
	if !utils.CheckPassword(customer.PasswordHash, password) {
		return fiber.NewError(fiber.StatusUnauthorized, "incorrect password")
	}
	return nil
}

// checkOTP validates the pending verification code. An expired code fails
// even when it matches.
func checkOTP(customer *models.Customer, code string, now time.Time) error {
	if customer.OTPCode == nil {
		return fiber.NewError(fiber.StatusBadRequest, "no verification code was requested")
	}
	if customer.OTPExpiresAt != nil && now.After(*customer.OTPExpiresAt) {
		return fiber.NewError(fiber.StatusBadRequest, "verification code has expired, request a new one")
	}
	if *customer.OTPCode != code {
		return fiber.NewError(fiber.StatusBadRequest, "incorrect verification code")
	}
	return nil
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(h.cfg.TokenExpires),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func customerResponse(customer *models.Customer) fiber.Map {
	return fiber.Map{
		"id":          customer.ID,
		"name":        customer.Name,
		"email":       customer.Email,
		"phone":       customer.Phone,
		"address":     customer.Address,
		"avatar":      customer.Avatar,
		"is_active":   customer.IsActive,
		"is_verified": customer.IsVerified,
		"last_login":  customer.LastLogin,
		"created_at":  customer.CreatedAt,
		"updated_at":  customer.UpdatedAt,
	}
}

func generateOTP() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
