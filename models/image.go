package models

import (
	"strings"

	"gorm.io/gorm"
)

type Image struct {
	ID ID `gorm:"type:char(36);primaryKey" json:"id"`
	// AlbumID is a back-reference for cascades and ownership lookups. It never changes after creation.
	AlbumID    ID         `gorm:"type:char(36);not null;index" json:"album_id"`
	Name       string     `gorm:"type:varchar(300)" json:"name"`
	MimeType   string     `gorm:"type:varchar(50)" json:"mime_type"`
	StorageRef string     `gorm:"type:varchar(2000);not null" json:"storage_ref"`
	Size       int64      `json:"size"`
	Tags       StringSet  `gorm:"type:text" json:"tags"`
	Persons    StringSet  `gorm:"type:text" json:"persons"`
	Favourite  bool       `gorm:"not null;default:0;index" json:"favourite"`
	Comments   StringList `gorm:"type:text" json:"comments"`
	CreatedAt  int64      `json:"created_at"`
	UpdatedAt  int64      `json:"updated_at"`
}

func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == NilID {
		i.ID = NewID()
	}
	return nil
}

func (i *Image) Clone() *Image {
	c := *i
	c.Tags = i.Tags.Clone()
	c.Persons = i.Persons.Clone()
	c.Comments = i.Comments.Clone()
	return &c
}

// SanitizeName restricts the characters in an uploaded file name
func SanitizeName(in string) string {
	var name strings.Builder
	for i, c := range in {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
			(c == '.' && i > 0) || (c == '-') || (c == '_') {

			name.WriteRune(c)
		} else {
			// Replace all other characters with '_' (underscore)
			name.WriteString("_")
		}
	}
	return name.String()
}
