package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Article is the minimal view of a CMS article that comments attach to.
// The article body and its editing workflow live outside this service.
type Article struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	Slug      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"slug"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Article) TableName() string {
	return "articles"
}
