package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Restaurant is one physical establishment. The aggregate columns
// (NumRatings, SumRating, AvgRating) are derived from the restaurant's
// reviews and are only written inside the review submission transaction
// or by the nightly reconciliation job.
type Restaurant struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"not null;index" json:"name"`
	Category string `gorm:"index" json:"category"`
	City     string `gorm:"index" json:"city"`
	Price    int    `gorm:"not null;default:1" json:"price"` // tier ordinal, 1-4
	PhotoURL string `json:"photo_url,omitempty"`

	NumRatings int     `gorm:"not null;default:0" json:"num_ratings"`
	SumRating  float64 `gorm:"not null;default:0" json:"sum_rating"`
	AvgRating  float64 `gorm:"not null;default:0" json:"avg_rating"`
}

func (Restaurant) TableName() string {
	return "restaurants"
}

// BeforeCreate assigns the opaque id when the store creates the record.
func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
