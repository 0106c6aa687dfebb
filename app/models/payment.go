package models

import "time"

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
	PaymentStatusFailed   = "failed"
	PaymentStatusPending  = "pending"
	PaymentStatusUnknown  = "unknown"
)

// Payment is a single upstream transaction. FinalAmount is stored in minor
// currency units (cents). MembershipID may point at a membership that is not
// cached.
type Payment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CompanyID    string     `gorm:"type:varchar(191);not null;index:ux_payments_company_payment,unique,priority:1;index:idx_payments_company_status_paid,priority:1" json:"company_id"`
	ExternalID   string     `gorm:"type:varchar(191);not null;index:ux_payments_company_payment,unique,priority:2" json:"external_id"`
	ProductID    *string    `gorm:"type:varchar(191);index" json:"product_id,omitempty"`
	MembershipID *string    `gorm:"type:varchar(191)" json:"membership_id,omitempty"`
	UserID       *string    `gorm:"type:varchar(191);index" json:"user_id,omitempty"`
	Status       string     `gorm:"type:varchar(16);not null;index:idx_payments_company_status_paid,priority:2" json:"status"`
	FinalAmount  int64      `gorm:"not null" json:"final_amount"`
	Currency     string     `gorm:"type:varchar(8);not null" json:"currency"`
	CreatedAt    time.Time  `gorm:"autoCreateTime:false;not null" json:"created_at"`
	PaidAt       *time.Time `gorm:"type:datetime;index:idx_payments_company_status_paid,priority:3" json:"paid_at,omitempty"`
	RefundedAt   *time.Time `gorm:"type:datetime" json:"refunded_at,omitempty"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
