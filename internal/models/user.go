package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a registered account. Password always holds a bcrypt hash and is
// never serialized.
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex;not null;size:64" json:"username"`
	Email      string         `gorm:"size:255" json:"email"`
	FirstName  string         `gorm:"size:100" json:"first_name"`
	LastName   string         `gorm:"size:100" json:"last_name"`
	Bio        string         `gorm:"type:text" json:"bio"`
	ForHire    bool           `gorm:"not null;default:false" json:"forHire"`
	Password   string         `gorm:"not null" json:"-"`
	Avatar     string         `gorm:"type:text" json:"avatar"`
	CoverPhoto string         `gorm:"size:512" json:"cover_photo,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// Profile is the public view of a User returned by JSON endpoints.
type Profile struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Bio        string    `json:"bio"`
	ForHire    bool      `json:"forHire"`
	Avatar     string    `json:"avatar"`
	CoverPhoto string    `json:"cover_photo,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToProfile shapes u for output, leaving out credential fields.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Bio:        u.Bio,
		ForHire:    u.ForHire,
		Avatar:     u.Avatar,
		CoverPhoto: u.CoverPhoto,
		CreatedAt:  u.CreatedAt,
	}
}
