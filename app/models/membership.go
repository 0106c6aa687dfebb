package models

import "time"

const (
	MembershipStatusTrialing  = "trialing"
	MembershipStatusActive    = "active"
	MembershipStatusCancelled = "cancelled"
	MembershipStatusExpired   = "expired"
	MembershipStatusPastDue   = "past_due"
)

// Membership is a customer's access record to a product. CreatedAt carries the
// upstream creation time and is never filled in by GORM.
type Membership struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	CompanyID          string     `gorm:"type:varchar(191);not null;index:ux_memberships_company_membership,unique,priority:1;index:idx_memberships_company_status,priority:1" json:"company_id"`
	ExternalID         string     `gorm:"type:varchar(191);not null;index:ux_memberships_company_membership,unique,priority:2" json:"external_id"`
	ProductID          *string    `gorm:"type:varchar(191);index" json:"product_id,omitempty"`
	UserID             *string    `gorm:"type:varchar(191);index" json:"user_id,omitempty"`
	Status             string     `gorm:"type:varchar(16);not null;index:idx_memberships_company_status,priority:2" json:"status"`
	Valid              bool       `gorm:"not null" json:"valid"`
	CreatedAt          time.Time  `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
	ExpiresAt          *time.Time `gorm:"type:datetime" json:"expires_at,omitempty"`
	RenewalPeriodStart *time.Time `gorm:"type:datetime" json:"renewal_period_start,omitempty"`
	RenewalPeriodEnd   *time.Time `gorm:"type:datetime" json:"renewal_period_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"not null" json:"cancel_at_period_end"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
