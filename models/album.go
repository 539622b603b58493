package models

import "gorm.io/gorm"

type Album struct {
	ID          ID     `gorm:"type:char(36);primaryKey" json:"id"`
	OwnerID     ID     `gorm:"type:char(36);not null;index:owner_album_created,priority:1" json:"owner_id"`
	Name        string `gorm:"type:varchar(300);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	// ImageIDs is the authoritative membership of the album
	ImageIDs   IDSet     `gorm:"column:image_ids;type:text" json:"image_ids"`
	SharedWith StringSet `gorm:"column:shared_with;type:text" json:"shared_with"`
	// Version is bumped on every write and guards read-modify-write updates
	Version   int64 `gorm:"not null;default:0" json:"-"`
	CreatedAt int64 `gorm:"index:owner_album_created,priority:2" json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

func (a *Album) BeforeCreate(tx *gorm.DB) error {
	if a.ID == NilID {
		a.ID = NewID()
	}
	return nil
}

func (a *Album) IsOwnedBy(owner ID) bool {
	return a.OwnerID == owner
}

func (a *Album) Clone() *Album {
	c := *a
	c.ImageIDs = a.ImageIDs.Clone()
	c.SharedWith = a.SharedWith.Clone()
	return &c
}
