package database

import "tribune/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.UserRating{},
		&models.Category{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.EmailToken{},
		&models.ResetToken{},
		&models.RefreshToken{},
		&models.RevokedToken{},
	}
}
