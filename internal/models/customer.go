package models

import "time"

// Customer represents a storefront account. Accounts start unverified and
// become verified through the OTP flow; a verified account never transitions
// back.
type Customer struct {
	BaseModel
	Name         string `json:"name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Avatar       string `json:"avatar"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	IsVerified   bool   `gorm:"default:false" json:"is_verified"`

	// One-shot OTP, cleared on successful verification.
	OTPCode      *string    `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login"`

	Orders []Order `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}
