package sqlite

import "time"

type FactModel struct {
	ID               uint   `gorm:"primaryKey"`
	Text             string `gorm:"not null"`
	Author           string
	Status           string    `gorm:"not null;default:'pending';index"`
	Timestamp        time.Time `gorm:"autoCreateTime"`
	SubmitterAddress *string
}

func (FactModel) TableName() string { return "facts" }
