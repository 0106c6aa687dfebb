package models

import "time"

// MetricsCache keeps the last computed summary per company. It is a read-side
// convenience only; metrics are always recomputed from the raw tables.
type MetricsCache struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CompanyID   string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_metrics_cache_company" json:"company_id"`
	PayloadJSON string    `gorm:"type:longtext;not null" json:"payload_json"`
	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName keeps the historical singular table name.
func (MetricsCache) TableName() string {
	return "metrics_cache"
}
