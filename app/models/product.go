package models

import "time"

// Product mirrors an upstream access pass. Products are only ever created or
// overwritten by a sync, never deleted.
type Product struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CompanyID    string    `gorm:"type:varchar(191);not null;index:ux_products_company_product,unique,priority:1" json:"company_id"`
	ExternalID   string    `gorm:"type:varchar(191);not null;index:ux_products_company_product,unique,priority:2" json:"external_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	MetadataJSON string    `gorm:"type:text" json:"metadata_json"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ProductMetadata is the free-form part of a product, stored as JSON.
type ProductMetadata struct {
	Visibility string `json:"visibility,omitempty"`
	Stock      *int64 `json:"stock,omitempty"`
}
