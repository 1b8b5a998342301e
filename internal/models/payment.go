package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID              uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID        uuid.UUID     `json:"course_id" gorm:"type:uuid;not null;index"`
	UserID          uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	Amount          int64         `json:"amount" gorm:"not null"` // smallest currency unit, after discount and tax
	OriginalPrice   int64         `json:"original_price" gorm:"not null"`
	Discount        float64       `json:"discount" gorm:"not null;default:0"` // percent
	Tax             float64       `json:"tax" gorm:"not null;default:0"`      // percent
	Currency        string        `json:"currency" gorm:"not null;size:3"`
	Status          PaymentStatus `json:"status" gorm:"not null;size:20;default:pending;index"`
	GatewayIntentID string        `json:"gateway_intent_id" gorm:"uniqueIndex;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TotalAmount applies a percentage discount and then a percentage tax to a
// price expressed in the smallest currency unit, rounding to the nearest unit.
func TotalAmount(price int64, discount, tax float64) int64 {
	discounted := float64(price) - float64(price)*discount/100
	total := discounted + discounted*tax/100
	if total < 0 {
		return 0
	}
	return int64(total + 0.5)
}
