package models

import "gorm.io/gorm"

// Owner is created on the first successful login and refreshed (email, name) on later ones.
type Owner struct {
	ID         ID     `gorm:"type:char(36);primaryKey" json:"id"`
	ExternalID string `gorm:"type:varchar(150);index:uniq_external_id,unique;not null" json:"external_id"`
	Email      string `gorm:"type:varchar(150)" json:"email"`
	Name       string `gorm:"type:varchar(100)" json:"name"`
	CreatedAt  int64  `json:"created_at"`
	UpdatedAt  int64  `json:"updated_at"`
}

func (o *Owner) BeforeCreate(tx *gorm.DB) error {
	if o.ID == NilID {
		o.ID = NewID()
	}
	return nil
}
