package models

import "time"

// Status controls the visibility of a post or comment. Inactive entities are
// served only to their author and to admins, and are reported as not found to
// everyone else.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Post represents an authored entry that can be categorized, commented on and
// rated. Locked gates mutation independently of Status: a locked post rejects
// any non-admin edit, delete or new comment.
type Post struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	Author      User       `gorm:"foreignKey:AuthorID" json:"author"`
	Title       string     `gorm:"not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Image       string     `json:"image"`
	Status      Status     `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	Locked      bool       `gorm:"not null;default:false" json:"locked"`
	PublishDate time.Time  `gorm:"column:publish_date;autoCreateTime;index" json:"publish_date"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Categories  []Category `gorm:"many2many:posts_categories" json:"categories,omitempty"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// DislikesCount is not persisted; computed at query time
	DislikesCount int `gorm:"->;-:migration" json:"dislikes_count"`
	// LikesNet is likes minus dislikes; computed at query time
	LikesNet int `gorm:"->;-:migration" json:"likes_net"`
	// CommentsCount counts active comments only; computed at query time
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
}
