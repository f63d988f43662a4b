package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is owned by exactly one restaurant and is immutable once
// created: there is no update or delete path. CreatedAt is assigned by
// the server at write time; client-supplied values are overwritten.
type Review struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	RestaurantID string  `gorm:"not null;index;size:36" json:"restaurant_id"`
	Rating       float64 `gorm:"not null" json:"rating"` // 0-5
	Text         string  `gorm:"type:text;not null" json:"text"`

	UserID   string `gorm:"not null;index" json:"user_id"`
	UserName string `json:"user_name"`
}

func (Review) TableName() string {
	return "reviews"
}

func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
