package database

import "unheard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Confession{},
		&models.Comment{},
		&models.Reaction{},
		&models.AnonymousSession{},
	}
}
