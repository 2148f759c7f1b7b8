package models

import "github.com/google/uuid"

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type Order struct {
	BaseModel
	OrderCode     string      `gorm:"uniqueIndex" json:"order_code"`
	CustomerID    *uuid.UUID  `gorm:"type:uuid;index" json:"customer_id"`
	Customer      *Customer   `json:"customer,omitempty"`
	TotalAmount   float64     `json:"total_amount"`
	PaymentMethod string      `gorm:"default:cash" json:"payment_method"`
	PaymentStatus bool        `gorm:"default:false" json:"payment_status"`
	Status        string      `gorm:"default:pending" json:"status"`
	Note          string      `json:"note"`
	MomoTransID   string      `gorm:"index" json:"momo_trans_id"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem carries a price snapshot taken at checkout time.
type OrderItem struct {
	BaseModel
	OrderID   uuid.UUID  `gorm:"type:uuid;index" json:"order_id"`
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id"`
	Quantity  int        `json:"quantity"`
	Price     float64    `json:"price"`
}
