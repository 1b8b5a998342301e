package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Discussion struct {
	ID      uuid.UUID                      `json:"id" gorm:"type:uuid;primaryKey"`
	Belong  uuid.UUID                      `json:"belong" gorm:"type:uuid;not null;index"`
	Title   string                         `json:"title" gorm:"not null;size:200"`
	Content string                         `json:"content" gorm:"type:text;not null"`
	Replies datatypes.JSONSlice[Reply]     `json:"replies" gorm:"type:jsonb"`
	Likes   int                            `json:"likes" gorm:"not null;default:0"`
	LikedBy datatypes.JSONSlice[uuid.UUID] `json:"liked_by" gorm:"type:jsonb"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type Reply struct {
	User      uuid.UUID `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (Discussion) TableName() string {
	return "discussions"
}

func (d *Discussion) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *Discussion) AddReply(userID uuid.UUID, content string, now time.Time) Reply {
	r := Reply{User: userID, Content: content, CreatedAt: now}
	d.Replies = append(d.Replies, r)
	return r
}

// ToggleLike likes the discussion for userID, or removes the like when one is
// already present. It returns true when the discussion ends up liked by userID.
func (d *Discussion) ToggleLike(userID uuid.UUID) bool {
	if i := slices.Index(d.LikedBy, userID); i >= 0 {
		d.LikedBy = slices.Delete(d.LikedBy, i, i+1)
		d.Likes = len(d.LikedBy)
		return false
	}
	d.LikedBy = append(d.LikedBy, userID)
	d.Likes = len(d.LikedBy)
	return true
}
