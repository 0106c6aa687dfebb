package models

import "time"

const (
	CompanyTierFree = "free"
	CompanyTierPro  = "pro"
)

// Company is the tenant every cached record is scoped to. ExternalID is the
// upstream company identifier and doubles as the scoping key of all other
// tables.
type Company struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ExternalID   string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_companies_external_id" json:"external_id"`
	Tier         string     `gorm:"type:varchar(32);not null;default:'free'" json:"tier"`
	LastSyncedAt *time.Time `gorm:"type:datetime" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
