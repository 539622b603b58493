package store

import "picshelf/models"

// AlbumFilter fields are ANDed; zero values do not filter.
type AlbumFilter struct {
	ID         *models.ID
	OwnerID    *models.ID
	SharedWith string
	// IncludeShared turns OwnerID and SharedWith into an OR: owned by OwnerID or shared with SharedWith
	IncludeShared bool
}

func (f AlbumFilter) Matches(a *models.Album) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	owned := f.OwnerID == nil || a.OwnerID == *f.OwnerID
	shared := f.SharedWith == "" || a.SharedWith.Contains(f.SharedWith)
	if f.IncludeShared {
		return (f.OwnerID != nil && owned) || (f.SharedWith != "" && shared)
	}
	return owned && shared
}

// ImageFilter fields are ANDed; nil fields do not filter.
type ImageFilter struct {
	AlbumID *models.ID
	// IDs restricts the result to the given ids. A non-nil empty slice matches nothing.
	IDs       []models.ID
	Favourite *bool
	// AnyTags matches images sharing at least one tag. Empty means no filtering.
	AnyTags []string
}

func (f ImageFilter) Matches(i *models.Image) bool {
	if f.AlbumID != nil && i.AlbumID != *f.AlbumID {
		return false
	}
	if f.IDs != nil && !models.IDSet(f.IDs).Contains(i.ID) {
		return false
	}
	if f.Favourite != nil && i.Favourite != *f.Favourite {
		return false
	}
	if len(f.AnyTags) > 0 && !i.Tags.ContainsAny(f.AnyTags) {
		return false
	}
	return true
}

type AlbumPatch struct {
	Name        *string
	Description *string
	// AddSharedWith is applied with add-to-set semantics
	AddSharedWith []string
}

func (p AlbumPatch) Apply(a *models.Album) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	for _, email := range p.AddSharedWith {
		a.SharedWith.Add(email)
	}
}

type ImagePatch struct {
	Tags           *[]string
	Persons        *[]string
	Favourite      *bool
	Comments       *[]string
	AppendComments []string
}

func (p ImagePatch) Apply(i *models.Image) {
	if p.Tags != nil {
		i.Tags = models.NewStringSet(*p.Tags...)
	}
	if p.Persons != nil {
		i.Persons = models.NewStringSet(*p.Persons...)
	}
	if p.Favourite != nil {
		i.Favourite = *p.Favourite
	}
	if p.Comments != nil {
		i.Comments = append(models.StringList{}, *p.Comments...)
	}
	i.Comments = append(i.Comments, p.AppendComments...)
}

func (p ImagePatch) IsEmpty() bool {
	return p.Tags == nil && p.Persons == nil && p.Favourite == nil && p.Comments == nil && len(p.AppendComments) == 0
}
