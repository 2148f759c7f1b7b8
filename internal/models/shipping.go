package models

import "github.com/google/uuid"

// Shipping statuses. An order's shipment moves pending -> confirmed ->
// shipping -> delivered, or to cancelled from any of those.
const (
	ShippingStatusPending   = "pending"
	ShippingStatusConfirmed = "confirmed"
	ShippingStatusShipping  = "shipping"
	ShippingStatusDelivered = "delivered"
	ShippingStatusCancelled = "cancelled"
)

// OrderShipping is one shipment per order, linked by order_id only; there is
// no foreign-key enforcement against Order.
type OrderShipping struct {
	BaseModel
	OrderID       uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	CustomerID    *uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	Address       string     `gorm:"column:shipping_address" json:"shipping_address"`
	Status        string     `gorm:"default:pending" json:"status"`
	ShippingFee   float64    `json:"shipping_fee"`
	ShippingNotes string     `json:"shipping_notes"`
	PaymentMethod string     `json:"payment_method"`
}
