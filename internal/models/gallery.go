package models

import "time"

// Gallery is a password-protected collection of media assets.
// The share slug is issued at creation and never reused; the shared flag
// controls whether the slug resolves.
type Gallery struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	OwnerID      string    `bson:"ownerId" json:"owner_id"`
	Name         string    `bson:"name" json:"name"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	ShareSlug    string    `bson:"shareSlug" json:"-"`
	Shared       bool      `bson:"shared" json:"shared"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}
