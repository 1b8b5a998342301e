package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string
type Role = UserRole // Alias for compatibility

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// ParseRole maps a free-form role string onto one of the three platform roles.
// Matching is case-insensitive; anything else is rejected.
func ParseRole(s string) (UserRole, error) {
	switch UserRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleInstructor:
		return RoleInstructor, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r UserRole) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserName string    `json:"user_name" gorm:"uniqueIndex;not null;size:100"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole  `json:"role" gorm:"not null;size:20;default:student"`

	PasswordHash      string     `json:"-" gorm:"not null"`
	PasswordChangedAt *time.Time `json:"-"`

	Active bool `json:"active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(u.Email)
	return nil
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}
