package models

import "time"

// Comment represents a reply attached to a post. Comments share the post's
// status and lock semantics, and a comment can additionally be locked on its
// own. After creation only the status may change.
type Comment struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PostID      uint      `gorm:"not null;index" json:"post_id"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"author"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Status      Status    `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	Locked      bool      `gorm:"not null;default:false" json:"locked"`
	PublishDate time.Time `gorm:"column:publish_date;autoCreateTime;index" json:"publish_date"`
	UpdatedAt   time.Time `json:"updated_at"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// DislikesCount is not persisted; computed at query time
	DislikesCount int `gorm:"->;-:migration" json:"dislikes_count"`
}
