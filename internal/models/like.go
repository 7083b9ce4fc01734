package models

import "time"

// LikeType is the reaction kind attached to a like row.
type LikeType string

const (
	LikeTypeLike    LikeType = "like"
	LikeTypeDislike LikeType = "dislike"
)

// Valid reports whether the like type is one of the known values.
func (t LikeType) Valid() bool {
	return t == LikeTypeLike || t == LikeTypeDislike
}

// Like records one user's reaction to exactly one post or one comment.
// Exactly one of PostID and CommentID is set. The composite unique indexes
// enforce at most one reaction per user per target; setting a like again
// replaces the type and refreshes the timestamp.
type Like struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AuthorID    uint      `gorm:"not null;index;uniqueIndex:idx_likes_author_post;uniqueIndex:idx_likes_author_comment" json:"author_id"`
	Author      User      `gorm:"foreignKey:AuthorID" json:"author"`
	PostID      *uint     `gorm:"uniqueIndex:idx_likes_author_post" json:"post_id,omitempty"`
	CommentID   *uint     `gorm:"uniqueIndex:idx_likes_author_comment" json:"comment_id,omitempty"`
	Type        LikeType  `gorm:"type:varchar(16);not null" json:"type"`
	PublishDate time.Time `gorm:"column:publish_date;autoCreateTime" json:"publish_date"`
}
