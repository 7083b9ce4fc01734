package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix     = "user:%d"
	PostKeyPrefix     = "post:%d"
	CategoryKeyPrefix = "category:%d"
	CategoryListKey   = "categories:all"
)

const (
	UserTTL     = 5 * time.Minute
	PostTTL     = 30 * time.Minute
	CategoryTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func CategoryKey(categoryID uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, categoryID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func InvalidateCategory(ctx context.Context, categoryID uint) {
	Invalidate(ctx, CategoryKey(categoryID))
	Invalidate(ctx, CategoryListKey)
}
